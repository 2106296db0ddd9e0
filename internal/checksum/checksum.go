package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/starford/onepage/internal/models"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Document returns the digest of the canonical JSON encoding of doc's
// editable content. Id, owner and timestamps are left out, so two documents
// compare equal when a save would write the same page.
func Document(doc models.Document) string {
	blocks := doc.Blocks
	if len(blocks) == 0 {
		blocks = nil
	}
	data, err := json.Marshal(struct {
		Slug        string         `json:"slug"`
		ProjectName string         `json:"projectName"`
		Blocks      []models.Block `json:"blocks"`
	}{doc.Slug, doc.ProjectName, blocks})
	if err != nil {
		return ""
	}
	return Sum(data)
}
