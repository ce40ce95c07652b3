// Package normalisers turns raw fetched bytes into cleaned text. The pdf
// subpackage is the only format the collector accepts.
package normalisers
