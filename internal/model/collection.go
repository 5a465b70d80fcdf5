package model

type Collection struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	State   int    `json:"state"`
	Ctime   int64  `json:"ctime"`
	Mtime   int64  `json:"mtime"`
}

type CollectionMember struct {
	CollectionID string `json:"collection_id"`
	UserID       string `json:"user_id"`
	Ctime        int64  `json:"ctime"`
}
