package filestore

// Config holds the settings for the object store that archives run
// reports.
type Config struct {
	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	AccessKey string
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends (e.g. AWS S3).
	// Leave empty for MinIO.
	Region string

	// Bucket receives the reports. It is created on first use.
	Bucket string

	// Prefix is prepended to every report key, e.g. "ci/".
	Prefix string
}

// Enabled reports whether an archive target is configured.
func (c *Config) Enabled() bool {
	return c != nil && c.Endpoint != "" && c.Bucket != ""
}

// Key returns the object key for a report with the given run ID.
func (c *Config) Key(runID string) string {
	return c.Prefix + runID + ".yaml"
}
