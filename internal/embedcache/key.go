package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

type cacheKey struct {
	full        string
	modelName   string
	contentHash string
}

func buildCacheKey(modelName, taskType, text string) cacheKey {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return cacheKey{
		full:        "embed:" + modelName + ":" + taskType + ":" + contentHash,
		modelName:   modelName,
		contentHash: contentHash,
	}
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
