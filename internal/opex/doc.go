// Package opex checks that catalogue references are backed by OPEX metadata
// descriptors before any content is transferred.
//
// Descriptors live directly in the source root and are named after the
// reference they describe ("PH.681.1.opex"). In the TMS multi-asset layout a
// single descriptor may cover a span of sibling references
// ("PH.681.1-3.opex" covers PH.681.1, PH.681.2 and PH.681.3). Coverage is
// discovered once per run and shared with the router so ranged items are
// grouped under their descriptor's folder.
package opex
