// Package document classifies intake files as directly printable, requiring
// conversion, or rejected.
//
// Routing is driven by the configured direct and convert extension lists.
// Classify additionally checks the leading bytes of the file against the
// format signature its extension promises, so a renamed or truncated file is
// rejected up front instead of failing inside the printer or converter.
package document
