package config

const (
	// Enable snappy compression for raw scraped payloads to save space in the database.
	CompressRawPayloads = true
)
