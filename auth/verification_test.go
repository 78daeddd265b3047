package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/store"
)

// recordingSender captures sent mail instead of dialing SMTP.
type recordingSender struct {
	to      string
	subject string
	body    string
	err     error
}

func (r *recordingSender) Send(to, subject, htmlBody string) error {
	if r.err != nil {
		return r.err
	}
	r.to = to
	r.subject = subject
	r.body = htmlBody
	return nil
}

func TestGenerateCodeFormat(t *testing.T) {
	t.Parallel()

	pattern := regexp.MustCompile(`^[0-9A-F]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.True(t, pattern.MatchString(code), "code %q is not 6 uppercase hex chars", code)
		seen[code] = true
	}
	// 100 draws from a 16^6 space colliding down to a handful would mean a
	// broken random source.
	assert.Greater(t, len(seen), 90)
}

func TestRequestCodePersistsAndSends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := store.NewMemoryStore()
	sender := &recordingSender{}
	issuer := NewCodeIssuer(mem, sender, 10*time.Minute, zap.NewNop())

	base := time.Now()
	issuer.now = func() time.Time { return base }

	require.NoError(t, issuer.RequestCode(ctx, "ash@example.com"))

	rec, err := mem.FindCode(ctx, "ash@example.com")
	require.NoError(t, err)
	assert.Equal(t, base.Add(10*time.Minute), rec.ExpiresAt)

	assert.Equal(t, "ash@example.com", sender.to)
	assert.Equal(t, "Password Reset Code", sender.subject)
	assert.Contains(t, sender.body, rec.Code)
	assert.Contains(t, sender.body, "10 minutes")
}

func TestRequestCodeOverwritesPrevious(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := store.NewMemoryStore()
	issuer := NewCodeIssuer(mem, &recordingSender{}, 10*time.Minute, zap.NewNop())

	require.NoError(t, issuer.RequestCode(ctx, "ash@example.com"))
	first, err := mem.FindCode(ctx, "ash@example.com")
	require.NoError(t, err)

	require.NoError(t, issuer.RequestCode(ctx, "ash@example.com"))
	second, err := mem.FindCode(ctx, "ash@example.com")
	require.NoError(t, err)

	// The record is keyed by email: only the latest code survives.
	if first.Code == second.Code {
		t.Skip("random collision, one in 16^6")
	}
	assert.NotEqual(t, first.Code, second.Code)
}

func TestRequestCodeTransportFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mem := store.NewMemoryStore()
	sender := &recordingSender{err: errors.New("smtp down")}
	issuer := NewCodeIssuer(mem, sender, 10*time.Minute, zap.NewNop())

	err := issuer.RequestCode(ctx, "ash@example.com")
	require.Error(t, err)
	ae, ok := apperror.FromError(err)
	require.True(t, ok)
	assert.Equal(t, 500, ae.StatusCode())

	// Nothing persisted when the send fails.
	_, err = mem.FindCode(ctx, "ash@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
