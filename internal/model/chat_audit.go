package model

// ChatAudit records an anonymous chat against a share link. ClientHash is a
// keyed one-way hash of the caller address; the raw address is never stored.
type ChatAudit struct {
	ID           string `json:"id"`
	ShareID      string `json:"share_id"`
	CollectionID string `json:"collection_id"`
	ClientHash   string `json:"client_hash"`
	Ctime        int64  `json:"ctime"`
}
