// Package catalogue derives catalogue reference prefixes from digitized
// filenames.
//
// Each cataloguing system names its files differently: TMS appends page or
// part letters to an object number, Koha uses a leading record number, and
// Calm encodes the archival hierarchy with hyphens. A Resolver turns a
// filename into the Reference used for metadata validation and destination
// folder naming. Resolvers never fail; a filename that does not follow the
// convention becomes its own reference (its stem).
package catalogue
