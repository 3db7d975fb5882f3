// Package printsettings resolves the options each print job is submitted with.
//
// Global defaults come from the [print_settings] config table. An optional
// override file (YAML, TOML or JSON, chosen by extension) maps document file
// names to partial settings; only the keys an entry specifies replace the
// defaults. The Store hot-reloads that file and keeps the last valid version
// when an edit fails validation.
package printsettings
