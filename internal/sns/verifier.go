package sns

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/httpretry"
	"github.com/CR-AudioViz-AI/crav-newsletter-web/internal/pkg/logger"
)

// Cert fetch sits on the webhook hot path: keep the per-attempt timeout and
// the overall budget tight.
const (
	certFetchTimeout = 3 * time.Second
	verifyBudget     = 5 * time.Second
	maxCertBytes     = 64 * 1024
)

// Verifier validates that an inbound envelope was signed by the provider.
// The signing certificate is fetched from the URL supplied by the request
// itself; there is no pinned certificate store.
type Verifier struct {
	client httpretry.HTTPDoer
}

// NewVerifier creates a Verifier. If client is nil, a retrying HTTP client
// with a bounded per-attempt timeout is used for certificate fetches.
func NewVerifier(client httpretry.HTTPDoer) *Verifier {
	if client == nil {
		client = httpretry.NewRetryClient(&http.Client{Timeout: certFetchTimeout}, 1)
	}
	return &Verifier{client: client}
}

// Verify checks the base64 signature over the envelope's canonical string
// using the RSA certificate at certURL. It fails closed: a missing signature
// or cert URL, an unreachable certificate, or any parse failure all yield
// false, never an error.
func (v *Verifier) Verify(ctx context.Context, env *Envelope, signature, certURL string) bool {
	signature = strings.TrimSpace(signature)
	certURL = strings.TrimSpace(certURL)
	if signature == "" || certURL == "" {
		logger.Warn("webhook signature or cert url header missing")
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		logger.Warn("webhook signature is not valid base64", "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, verifyBudget)
	defer cancel()

	cert, err := v.fetchCert(ctx, certURL)
	if err != nil {
		logger.Warn("signing cert fetch failed", "url", certURL, "error", err)
		return false
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		logger.Warn("signing cert does not carry an RSA public key", "url", certURL)
		return false
	}

	sum := sha256.Sum256([]byte(env.CanonicalString()))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, sum[:], sig); err != nil {
		logger.Warn("webhook signature mismatch", "message_id", env.MessageID)
		return false
	}
	return true
}

func (v *Verifier) fetchCert(ctx context.Context, certURL string) (*x509.Certificate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, certURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build cert request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch cert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch cert: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertBytes))
	if err != nil {
		return nil, fmt.Errorf("read cert body: %w", err)
	}

	block, _ := pem.Decode(body)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in cert response")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse cert: %w", err)
	}
	return cert, nil
}
