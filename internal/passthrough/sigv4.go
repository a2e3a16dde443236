package passthrough

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/modelgate/modelgate/internal/credential"
)

const signingService = "bedrock"

// sigV4Signer signs bedrock descriptors with AWS Signature Version 4.
type sigV4Signer struct {
	signer *v4.Signer
	now    func() time.Time
}

func newSigV4Signer() *sigV4Signer {
	return &sigV4Signer{signer: v4.NewSigner(), now: time.Now}
}

// sign computes the signature over the descriptor's method, URL, headers,
// and body, then replaces the descriptor headers with the signed set. The
// body bytes are hashed as-is and never reconstructed.
func (s *sigV4Signer) sign(ctx context.Context, d *Descriptor, cred *credential.Credential) error {
	req, err := http.NewRequestWithContext(ctx, d.Method, d.URL, nil)
	if err != nil {
		return err
	}
	req.Header = d.Header.Clone()

	sum := sha256.Sum256(d.Body)
	creds := aws.Credentials{
		AccessKeyID:     cred.AccessKeyID,
		SecretAccessKey: cred.SecretAccessKey,
		SessionToken:    cred.SessionToken,
	}

	if err := s.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), signingService, cred.Region, s.now()); err != nil {
		return err
	}

	d.Header = req.Header
	return nil
}
