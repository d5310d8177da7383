// Package exportpdf writes paginated raster documents as PDF files using
// go-pdf/fpdf.
package exportpdf
