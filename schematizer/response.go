package schematizer

// NamespaceResponse is a namespace as returned by the registry API.
type NamespaceResponse struct {
	NamespaceID int    `json:"namespace_id"`
	Name        string `json:"name"`
}

// SourceResponse is a source as returned by the registry API.
type SourceResponse struct {
	SourceID   int                `json:"source_id"`
	Name       string             `json:"name"`
	OwnerEmail string             `json:"owner_email"`
	Namespace  *NamespaceResponse `json:"namespace"`
}

// SchemaResponse is an Avro schema as returned by the registry API.
type SchemaResponse struct {
	SchemaID int             `json:"schema_id"`
	Schema   string          `json:"schema"`
	Source   *SourceResponse `json:"source,omitempty"`
}
