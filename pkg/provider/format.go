package provider

import (
	"context"
	"strconv"
	"strings"

	"github.com/MewOmOrphic-418/AliYunDashScopeIntegration/pkg/api"
)

// FormatEmbedding renders an embedding as comma-separated values with six
// decimal places, e.g. "0.100000,-0.250000".
func FormatEmbedding(e api.Embedding) string {
	var b strings.Builder
	for i, v := range e {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', 6, 32))
	}
	return b.String()
}

// EmbedString calls p.Embed and returns the formatted vector.
func EmbedString(ctx context.Context, p Provider, text string) (string, error) {
	e, err := p.Embed(ctx, text)
	if err != nil {
		return "", err
	}
	return FormatEmbedding(e), nil
}
