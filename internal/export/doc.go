// Package export renders metrics snapshots as publication-ready LaTeX
// or Markdown tables and keeps a persistent log of scientific
// annotations alongside them.
package export
