// Package pdf extracts text from PDF documents.
//
// Extraction runs an ordered chain of strategies and keeps the output of
// the first one that produces text:
//
//   - layout: poppler's pdftotext via docconv, best structure
//   - basic: pure Go page-by-page parsing
//   - ocr: rasterised pages recognised with tesseract (build tag "ocr")
//
// The layout strategy requires poppler-utils; see InstallInstructions.
package pdf
