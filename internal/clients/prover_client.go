package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eigenda-sidecar/internal/cert"
	"eigenda-sidecar/internal/kzg"
	"eigenda-sidecar/internal/pointcodec"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProveRequest is everything the proving backend needs for one blob.
type ProveRequest struct {
	BlobID      string
	Certificate *cert.Certificate
	Payload     []byte
	Consistency *kzg.Result
}

// ProveResponse is the backend's output.
type ProveResponse struct {
	Seal          []byte
	ImageID       common.Hash
	JournalDigest common.Hash
}

// proveRequestBody wire format of POST /prove
type proveRequestBody struct {
	RequestID       string        `json:"request_id"`
	BlobID          string        `json:"blob_id"`
	CertVersion     uint8         `json:"cert_version"`
	Certificate     hexutil.Bytes `json:"certificate"`
	VerifierMethod  string        `json:"verifier_method"`
	Calldata        hexutil.Bytes `json:"calldata"`
	VerifierAddress string        `json:"verifier_address,omitempty"`
	Payload         hexutil.Bytes `json:"payload"`
	PayloadForm     string        `json:"payload_form"`
	BlobLength      uint64        `json:"blob_length"`
	Commitment      hexutil.Bytes `json:"commitment"`
	EvalCommitment  hexutil.Bytes `json:"eval_commitment"`
	Proof           hexutil.Bytes `json:"proof"`
	Challenge       hexutil.Bytes `json:"challenge"`
	Evaluation      hexutil.Bytes `json:"evaluation"`
}

// proveResponseBody wire format of the /prove response
type proveResponseBody struct {
	RequestID      string        `json:"request_id"`
	Success        bool          `json:"success"`
	Seal           hexutil.Bytes `json:"seal"`
	ImageID        common.Hash   `json:"image_id"`
	JournalDigest  common.Hash   `json:"journal_digest"`
	ErrorMessage   *string       `json:"error_message"`
	GenerationTime *string       `json:"generation_time"`
}

// ProverClient proving backend HTTP client
type ProverClient struct {
	BaseURL         string
	Client          *http.Client
	verifierAddress string
	payloadForm     kzg.PayloadForm
	logger          *logrus.Logger
}

// NewProverClient Create a new prover client
func NewProverClient(baseURL string, timeout time.Duration, verifierAddress string, form kzg.PayloadForm, logger *logrus.Logger) *ProverClient {
	logger.WithFields(logrus.Fields{
		"base_url": baseURL,
		"timeout":  timeout,
	}).Info("🔧 [Prover] client created")
	return &ProverClient{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		Client:          &http.Client{Timeout: timeout},
		verifierAddress: verifierAddress,
		payloadForm:     form,
		logger:          logger,
	}
}

func (c *ProverClient) buildBody(req *ProveRequest) (*proveRequestBody, error) {
	if req.Certificate == nil || req.Consistency == nil {
		return nil, fmt.Errorf("prove request for %s is incomplete", req.BlobID)
	}
	certBytes, err := req.Certificate.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode certificate: %w", err)
	}
	calldata, err := req.Certificate.VerifierCalldata()
	if err != nil {
		return nil, fmt.Errorf("encode verifier calldata: %w", err)
	}

	res := req.Consistency
	commitment := pointcodec.EncodeG1(&res.Commitment)
	evalCommitment := pointcodec.EncodeG1(&res.EvalCommitment)
	proof := pointcodec.EncodeG1(&res.Proof)
	challenge := res.Challenge.Bytes()
	evaluation := res.Evaluation.Bytes()

	return &proveRequestBody{
		RequestID:       uuid.NewString(),
		BlobID:          req.BlobID,
		CertVersion:     uint8(req.Certificate.Version),
		Certificate:     certBytes,
		VerifierMethod:  req.Certificate.VerifierMethod(),
		Calldata:        calldata,
		VerifierAddress: c.verifierAddress,
		Payload:         req.Payload,
		PayloadForm:     c.payloadForm.String(),
		BlobLength:      res.BlobLength,
		Commitment:      commitment[:],
		EvalCommitment:  evalCommitment[:],
		Proof:           proof[:],
		Challenge:       challenge[:],
		Evaluation:      evaluation[:],
	}, nil
}

// Prove Generate the proof artifact for one blob
func (c *ProverClient) Prove(ctx context.Context, req *ProveRequest) (*ProveResponse, error) {
	body, err := c.buildBody(req)
	if err != nil {
		return nil, err
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/prove", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	log := c.logger.WithFields(logrus.Fields{
		"blob_id":    req.BlobID,
		"request_id": body.RequestID,
	})
	log.Info("📤 [Prover] sending prove request")

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Warn("❌ [Prover] prove request failed")
		// Try to parse error response
		var errorResp map[string]interface{}
		if json.Unmarshal(respBody, &errorResp) == nil {
			if msg, ok := errorResp["message"].(string); ok {
				return nil, fmt.Errorf("prover returned error (status %d): %s", resp.StatusCode, msg)
			}
		}
		return nil, fmt.Errorf("prover returned error (status %d): %s", resp.StatusCode, truncate(string(respBody), 256))
	}

	var result proveResponseBody
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success {
		msg := "unknown error"
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		return nil, fmt.Errorf("prover failed: %s", msg)
	}
	if len(result.Seal) == 0 {
		return nil, fmt.Errorf("prover returned an empty seal")
	}

	fields := logrus.Fields{"image_id": result.ImageID.Hex()}
	if result.GenerationTime != nil {
		fields["generation_time"] = *result.GenerationTime
	}
	log.WithFields(fields).Info("✅ [Prover] proof generated")

	return &ProveResponse{
		Seal:          result.Seal,
		ImageID:       result.ImageID,
		JournalDigest: result.JournalDigest,
	}, nil
}
