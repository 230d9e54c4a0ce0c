package domain

// Artist is a catalog artist. ID is provider assigned and stable; Name is
// only used as a search key.
type Artist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	URL   string `json:"url"`
	Genre string `json:"genre"`
}

type Song struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ArtistID   string `json:"artist_id"`
	ArtistName string `json:"artist_name"`
	Album      string `json:"album"`
	URL        string `json:"url"`
}

type SearchRequest struct {
	Name  string `json:"name"`
	Limit *int   `json:"limit,omitempty"`
}

// Validate rejects requests that must never reach a provider.
func (r SearchRequest) Validate() error {
	if r.Name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if r.Limit != nil && *r.Limit <= 0 {
		return ValidationError{Field: "limit", Message: "limit must be a positive integer"}
	}
	return nil
}
