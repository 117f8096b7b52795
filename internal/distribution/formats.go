package distribution

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Representation is the intended use of a file copy inside a PAX package.
type Representation string

const (
	Access       Representation = "Representation_Access"
	Preservation Representation = "Representation_Preservation"
)

// Family is the media format family folder inside a representation.
type Family string

const (
	Image    Family = "Image"
	Document Family = "Document"
	Audio    Family = "Audio"
	Video    Family = "Video"
	Unknown  Family = "Unknown"
)

var familyExtensions = []struct {
	key        string
	extensions []string
}{
	{"image", []string{"jpeg", "jpg", "png", "tiff", "tif"}},
	{"document", []string{"doc", "docx", "pdf"}},
	{"audio", []string{"mp3", "wav", "aiff"}},
	{"video", []string{"mp4", "mkv", "mov"}},
}

var representationExtensions = map[Representation][]string{
	Access:       {"jpeg", "jpg", "png", "pdf", "mp3", "mp4"},
	Preservation: {"tiff", "tif", "doc", "docx", "wav", "aiff", "mkv", "mov"},
}

var (
	familyByExt         = map[string]Family{}
	representationByExt = map[string]Representation{}
)

func init() {
	title := cases.Title(language.Und)
	for _, group := range familyExtensions {
		family := Family(title.String(group.key))
		for _, ext := range group.extensions {
			familyByExt[ext] = family
		}
	}
	for rep, extensions := range representationExtensions {
		for _, ext := range extensions {
			representationByExt[ext] = rep
		}
	}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// FamilyFor maps an extension (with or without the dot, any case) to its
// format family. Unmapped extensions are Unknown.
func FamilyFor(ext string) Family {
	if family, ok := familyByExt[normalizeExt(ext)]; ok {
		return family
	}
	return Unknown
}

// RepresentationFor maps an extension to its representation. The boolean is
// false when the format has no representation and must not be routed.
func RepresentationFor(ext string) (Representation, bool) {
	rep, ok := representationByExt[normalizeExt(ext)]
	return rep, ok
}
