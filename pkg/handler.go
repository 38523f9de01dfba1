package himitsu

import "sync"

// ConfigLoader re-runs whatever source a daemon was started with (default
// table, file, base64 string, or URL) and produces a fresh Configuration.
// Handler.UpdateConfiguration calls it on reload.
type ConfigLoader func() (*Configuration, error)

// Handler owns the three independently-synchronized pieces of daemon state:
// the live Configuration, the Silencer, and the retained Findings set. No
// operation holds more than one of these locks at a time.
type Handler struct {
	configMu sync.RWMutex
	config   *Configuration
	loader   ConfigLoader

	silencer *Silencer

	findingsMu sync.RWMutex
	findings   FindingSet
}

// NewHandler builds a Handler around an initial Configuration and the
// loader that produced it, so later reloads can re-run the same source.
func NewHandler(config *Configuration, loader ConfigLoader) *Handler {
	return &Handler{
		config:   config,
		loader:   loader,
		silencer: NewSilencer(),
		findings: NewFindingSet(),
	}
}

// Handle processes one Request and produces the Response to send back. It
// never returns a transport-level error for scanner failures — those
// surface as Response.Error so the connection stays open.
func (h *Handler) Handle(req Request) Response {
	switch {
	case req.ScanCodeDiff != nil:
		return h.handleScanCodeDiff(req.ScanCodeDiff.Diff)
	default:
		return ErrorResponse("unrecognized request variant")
	}
}

func (h *Handler) handleScanCodeDiff(diff string) Response {
	// The read lock is held across the whole Scan call, not just the
	// pointer load: config.Scanner wraps a cgo-backed Hyperscan database,
	// and UpdateConfiguration closes the outgoing one once its writer lock
	// is granted. Releasing early would let a reload close the database
	// out from under a scan still reading it.
	h.configMu.RLock()
	results, err := h.config.Scanner.Scan(diff)
	h.configMu.RUnlock()
	if err != nil {
		return ErrorResponse(err.Error())
	}

	if len(results) == 0 {
		return CleanResponse()
	}

	h.findingsMu.Lock()
	h.findings = h.findings.Merge(results)
	h.findingsMu.Unlock()

	slice := results.Slice()
	if h.silencer.CheckAndConsume() {
		return SecretsFoundSilentResponse(slice)
	}
	return SecretsFoundResponse(slice)
}

// UpdateConfiguration re-runs the loader this Handler was started with and
// swaps the configuration wholesale on success. A loader failure leaves the
// prior configuration in place and is returned for the caller to log.
func (h *Handler) UpdateConfiguration() error {
	fresh, err := h.loader()
	if err != nil {
		return err
	}

	h.configMu.Lock()
	old := h.config
	h.config = fresh
	h.configMu.Unlock()

	if old != nil && old.Scanner != nil {
		old.Scanner.Close()
	}
	return nil
}

// SilenceOnce arms a one-shot silence on the next non-empty scan.
func (h *Handler) SilenceOnce() { h.silencer.SilenceOnce() }

// SilenceSet arms a timed silence window of durationSecs starting on the
// next non-empty scan.
func (h *Handler) SilenceSet(durationSecs int64) { h.silencer.SilenceSet(durationSecs) }

// FetchFindings returns a snapshot copy of the retained findings set.
func (h *Handler) FetchFindings() []Finding {
	h.findingsMu.RLock()
	defer h.findingsMu.RUnlock()
	return h.findings.Clone().Slice()
}

// ClearFindings empties the retained findings set.
func (h *Handler) ClearFindings() {
	h.findingsMu.Lock()
	h.findings = NewFindingSet()
	h.findingsMu.Unlock()
}
