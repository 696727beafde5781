package dialect

// Builtin dialects. All ANSI-flavored dialects quote identifiers with
// double quotes; Databricks uses backticks.
func init() {
	Register(&Dialect{Name: "ansi", QuoteOpen: '"', QuoteClose: '"'})
	Register(&Dialect{Name: "duckdb", QuoteOpen: '"', QuoteClose: '"'})
	Register(&Dialect{Name: "postgres", QuoteOpen: '"', QuoteClose: '"'})
	Register(&Dialect{Name: "snowflake", QuoteOpen: '"', QuoteClose: '"'})
	Register(&Dialect{Name: "databricks", QuoteOpen: '`', QuoteClose: '`'})
}
