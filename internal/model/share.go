package model

const (
	SharePermissionView = "view"
	SharePermissionChat = "chat"
)

type ShareLink struct {
	ID           string `json:"id"`
	Token        string `json:"token"`
	CollectionID string `json:"collection_id"`
	OwnerID      string `json:"owner_id"`
	Permission   string `json:"permission"`
	State        int    `json:"state"`
	ExpiresAt    int64  `json:"expires_at"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}

// ShareValidation is the result of checking an anonymous share token.
type ShareValidation struct {
	IsValid      bool
	ShareID      string
	CollectionID string
	OwnerID      string
	Permission   string
}
