// Package distribution decides where each source file lands in the
// submission package.
//
// The Standard layout places every file in a folder named after its
// reference. The PAX layout builds a multi-asset package per item and buckets
// files by representation (access or preservation copy) and format family.
// Files whose format maps to no representation are skipped rather than guessed.
package distribution
