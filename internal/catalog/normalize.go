package catalog

// NormalizeLocationID forces a channel id into its canonical negative
// form. Remote responses, persisted records and user input disagree on
// sign, so every id must pass through here before it is stored,
// compared or used as a map key. Zero stays zero; callers validate
// id != 0 before trusting the result.
func NormalizeLocationID(id int64) int64 {
	if id > 0 {
		return -id
	}
	return id
}
