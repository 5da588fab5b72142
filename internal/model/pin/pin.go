package pin

// Credentials carries a login attempt across the message boundary.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SaveRequest is built per user click on a save affordance, sent once and
// discarded after the response.
type SaveRequest struct {
	ImageURL    string `json:"imageUrl"`
	PageURL     string `json:"pageUrl"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Board is a remote-owned collection of pins. Only the fields the clipper
// reads are modeled; everything else stays on the server.
type Board struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PinsCount int    `json:"pins_count"`
}

// Pin mirrors the remote pin payload far enough to round-trip identifiers.
type Pin struct {
	ID          int64  `json:"id"`
	BoardID     int64  `json:"board_id,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	PageURL     string `json:"page_url,omitempty"`
}

// Link associates a pin with another remote entity (style, component,
// supplier).
type Link struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Stats is the best-effort aggregate shown by the control surface. Zero
// values are a valid answer, never an error.
type Stats struct {
	SavedToday  int `json:"savedToday"`
	TotalBoards int `json:"totalBoards"`
}
