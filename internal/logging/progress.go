package logging

// FileProgress decides when a per-file loop reports progress: on the first
// and last file, and whenever another stepPercent of the total completes.
type FileProgress struct {
	total  int
	step   int
	done   int
	bucket int
}

// NewFileProgress tracks total files. A non-positive stepPercent means 10.
func NewFileProgress(total, stepPercent int) *FileProgress {
	if stepPercent <= 0 {
		stepPercent = 10
	}
	return &FileProgress{total: total, step: stepPercent}
}

// Advance counts one more finished file and reports whether to log it.
func (p *FileProgress) Advance() (done int, report bool) {
	p.done++
	if p.total <= 0 {
		return p.done, false
	}
	bucket := p.done * 100 / p.total / p.step
	report = p.done == 1 || p.done >= p.total || bucket > p.bucket
	if bucket > p.bucket {
		p.bucket = bucket
	}
	return p.done, report
}
