package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eigenda-sidecar/internal/artifact"
	"eigenda-sidecar/internal/cert"
	"eigenda-sidecar/internal/clients"
	"eigenda-sidecar/internal/config"
	"eigenda-sidecar/internal/kzg"
	"eigenda-sidecar/internal/metrics"
	"eigenda-sidecar/internal/models"
	"eigenda-sidecar/internal/repository"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/sirupsen/logrus"
)

var (
	// ErrStoreUnavailable is returned by Run after too many consecutive
	// store failures.
	ErrStoreUnavailable       = errors.New("proof request store unavailable")
	ErrCertificateUnavailable = errors.New("certificate not available")
	ErrCertificateRejected    = errors.New("certificate rejected by verifier contract")
)

// pipeline steps, also used as metric and failure labels
const (
	StepResolve   = "resolve"
	StepRetrieve  = "retrieve"
	StepPreflight = "preflight"
	StepCheck     = "check"
	StepProve     = "prove"
	StepArtifact  = "artifact"
)

// StepError records which pipeline step failed a request.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return e.Step + ": " + e.Err.Error() }
func (e *StepError) Unwrap() error { return e.Err }

// ConsistencyChecker recomputes a blob commitment from its payload.
type ConsistencyChecker interface {
	Check(payload []byte, claimed bn254.G1Affine, claimedLength uint32) (*kzg.Result, error)
}

// ProofWorker drains the request store one row at a time.
type ProofWorker struct {
	repo      repository.ProofRequestRepository
	resolver  clients.Resolver
	retriever clients.Retriever
	verifier  clients.CertVerifier // nil disables preflight
	checker   ConsistencyChecker
	prover    clients.Prover
	notifier  clients.Notifier
	cfg       config.WorkerConfig
	logger    *logrus.Logger

	cancel context.CancelFunc
	errCh  chan error
	wg     sync.WaitGroup
}

// NewProofWorker 创建证明流水线
func NewProofWorker(
	repo repository.ProofRequestRepository,
	resolver clients.Resolver,
	retriever clients.Retriever,
	verifier clients.CertVerifier,
	checker ConsistencyChecker,
	prover clients.Prover,
	notifier clients.Notifier,
	cfg config.WorkerConfig,
	logger *logrus.Logger,
) *ProofWorker {
	if notifier == nil {
		notifier = clients.NopNotifier{}
	}
	if !cfg.Preflight {
		verifier = nil
	}
	return &ProofWorker{
		repo:      repo,
		resolver:  resolver,
		retriever: retriever,
		verifier:  verifier,
		checker:   checker,
		prover:    prover,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		errCh:     make(chan error, 1),
	}
}

// Start 启动服务
func (w *ProofWorker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Run(ctx); err != nil {
			w.logger.WithError(err).Error("❌ [ProofWorker] stopped")
			w.errCh <- err
		}
	}()
	w.logger.Info("✅ [ProofWorker] started")
}

// Stop 停止服务. An in-flight request is abandoned and stays queued.
func (w *ProofWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("✅ [ProofWorker] stopped")
}

// Err reports a fatal error from a worker started with Start.
func (w *ProofWorker) Err() <-chan error {
	return w.errCh
}

// Run processes queued requests until ctx is cancelled. It returns nil on
// cancellation and ErrStoreUnavailable when the store keeps failing.
func (w *ProofWorker) Run(ctx context.Context) error {
	failures := 0
	storeFailed := func(err error) error {
		failures++
		w.logger.WithError(err).WithField("consecutive_failures", failures).Warn("⚠️ [ProofWorker] store error")
		if w.cfg.MaxStoreFailures > 0 && failures >= w.cfg.MaxStoreFailures {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		row, err := w.repo.NextQueued(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if fatal := storeFailed(err); fatal != nil {
				return fatal
			}
			if !sleep(ctx, w.cfg.IdleBackoff) {
				return nil
			}
			continue
		}

		if row == nil {
			if !sleep(ctx, w.cfg.IdleBackoff) {
				return nil
			}
			continue
		}

		// A successful read does not reset the count; a row whose result
		// cannot be written comes straight back from NextQueued.
		if err := w.processRow(ctx, row); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if fatal := storeFailed(err); fatal != nil {
				return fatal
			}
			if !sleep(ctx, w.cfg.IdleBackoff) {
				return nil
			}
			continue
		}
		failures = 0
	}
}

// processRow runs one request to a terminal state. The returned error is a
// store error; pipeline failures are recorded on the row.
func (w *ProofWorker) processRow(ctx context.Context, row *models.ProofRequest) error {
	log := w.logger.WithFields(logrus.Fields{
		"blob_id": row.BlobID,
		"id":      row.ID,
	})
	log.Info("🔄 [ProofWorker] processing request")

	started := time.Now()
	proof, err := w.execute(ctx, row.BlobID)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("🛑 [ProofWorker] shutdown while processing, request stays queued")
			return ctx.Err()
		}
		return w.fail(ctx, row.BlobID, err, log)
	}

	if err := w.repo.MarkDone(ctx, row.BlobID, proof); err != nil {
		if errors.Is(err, repository.ErrAlreadyTerminal) {
			log.Warn("⚠️ [ProofWorker] request already terminal, result dropped")
			return nil
		}
		return err
	}
	metrics.ProofsCompleted.Inc()
	log.WithField("elapsed", time.Since(started).Round(time.Millisecond)).Info("✅ [ProofWorker] proof stored")

	w.publish(ctx, clients.ProofEvent{
		BlobID:    row.BlobID,
		State:     string(models.ProofRequestStateDone),
		Proof:     proof,
		Timestamp: time.Now(),
	}, log)
	return nil
}

func (w *ProofWorker) fail(ctx context.Context, blobID string, cause error, log *logrus.Entry) error {
	step := "unknown"
	var se *StepError
	if errors.As(cause, &se) {
		step = se.Step
	}
	log.WithError(cause).WithField("step", step).Warn("❌ [ProofWorker] request failed")

	if err := w.repo.MarkFailed(ctx, blobID, cause.Error()); err != nil {
		if errors.Is(err, repository.ErrAlreadyTerminal) {
			return nil
		}
		return err
	}
	metrics.ProofsFailed.WithLabelValues(step).Inc()

	w.publish(ctx, clients.ProofEvent{
		BlobID:    blobID,
		State:     string(models.ProofRequestStateFailed),
		Reason:    cause.Error(),
		Timestamp: time.Now(),
	}, log)
	return nil
}

func (w *ProofWorker) publish(ctx context.Context, ev clients.ProofEvent, log *logrus.Entry) {
	if err := w.notifier.Publish(ctx, ev); err != nil {
		log.WithError(err).Warn("⚠️ [ProofWorker] failed to publish proof event")
	}
}

// execute runs every pipeline step for blobID and returns the encoded
// artifact.
func (w *ProofWorker) execute(ctx context.Context, blobID string) (string, error) {
	var crt *cert.Certificate
	if err := timed(StepResolve, func() (err error) {
		crt, err = w.resolve(ctx, blobID)
		return err
	}); err != nil {
		return "", err
	}

	var payload []byte
	if err := timed(StepRetrieve, func() (err error) {
		payload, err = w.retriever.GetPayload(ctx, crt)
		return err
	}); err != nil {
		return "", err
	}

	if w.verifier != nil {
		if err := timed(StepPreflight, func() error {
			ok, err := w.verifier.VerifyCertificate(ctx, crt)
			if err != nil {
				return err
			}
			if !ok {
				return ErrCertificateRejected
			}
			return nil
		}); err != nil {
			return "", err
		}
	}

	var result *kzg.Result
	if err := timed(StepCheck, func() error {
		claimed, err := crt.Commitment()
		if err != nil {
			return err
		}
		result, err = w.checker.Check(payload, claimed, crt.BlobLength())
		return err
	}); err != nil {
		return "", err
	}

	var resp *clients.ProveResponse
	if err := timed(StepProve, func() (err error) {
		resp, err = w.prover.Prove(ctx, &clients.ProveRequest{
			BlobID:      blobID,
			Certificate: crt,
			Payload:     payload,
			Consistency: result,
		})
		return err
	}); err != nil {
		return "", err
	}

	var encoded string
	err := timed(StepArtifact, func() (err error) {
		a := &artifact.Artifact{
			Seal:          resp.Seal,
			ImageID:       resp.ImageID,
			JournalDigest: resp.JournalDigest,
			PayloadHash:   artifact.PayloadHash(payload),
		}
		encoded, err = a.Encode()
		return err
	})
	return encoded, err
}

// resolve polls the resolver until the certificate exists, the optional
// maximum wait elapses, or ctx is cancelled.
func (w *ProofWorker) resolve(ctx context.Context, blobID string) (*cert.Certificate, error) {
	started := time.Now()
	attempts := 0
	for {
		crt, err := w.resolver.GetCertificate(ctx, blobID)
		if err == nil {
			return crt, nil
		}
		if !errors.Is(err, clients.ErrNotYetAvailable) {
			return nil, err
		}

		attempts++
		if w.cfg.ResolveMaxWait > 0 && time.Since(started) >= w.cfg.ResolveMaxWait {
			return nil, fmt.Errorf("%w after %d attempts", ErrCertificateUnavailable, attempts)
		}
		if attempts%60 == 0 {
			w.logger.WithFields(logrus.Fields{
				"blob_id":  blobID,
				"attempts": attempts,
				"waited":   time.Since(started).Round(time.Second),
			}).Info("⏳ [ProofWorker] still waiting for certificate")
		}
		if !sleep(ctx, w.cfg.ResolveRetryInterval) {
			return nil, ctx.Err()
		}
	}
}

func timed(step string, fn func() error) error {
	started := time.Now()
	err := fn()
	metrics.PipelineStepDuration.WithLabelValues(step).Observe(time.Since(started).Seconds())
	if err != nil {
		return &StepError{Step: step, Err: err}
	}
	return nil
}

// sleep waits for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
