package manifest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// Terminal validation failures. All are non-retryable: the caller is
// expected to log, skip the offending plugin, and continue with the rest.
var (
	// ErrInvalidShape marks missing or malformed identity fields, an
	// unsupported source kind, or a manifest with no valid capabilities.
	ErrInvalidShape = errors.New("invalid manifest shape")

	// ErrIncompatibleVersion marks an app version outside the manifest's
	// declared compatibility window.
	ErrIncompatibleVersion = errors.New("incompatible application version")

	// ErrChecksumMismatch marks a computed digest disagreeing with an
	// embedded, carried, or caller-supplied checksum.
	ErrChecksumMismatch = errors.New("manifest checksum mismatch")
)

// LoadOptions configures a single manifest load.
type LoadOptions struct {
	// Source is the manifest in one of three shapes: raw JSON (string or
	// []byte), a parsed *Manifest/Manifest, or a Verified pair carrying a
	// previously computed checksum.
	Source any

	// CurrentVersion is the consuming application's version, compared
	// against the manifest's compatibility window.
	CurrentVersion string

	// ExpectedChecksum, when set, must match the computed checksum. Used
	// by the trust layer to detect drift since the user's last approval.
	ExpectedChecksum string
}

// Loader validates, version-gates, and checksums plugin manifests. A Loader
// is stateless between calls; concurrent use is safe.
type Loader struct {
	logger       zerolog.Logger
	digester     Digester
	schemaLoader gojsonschema.JSONLoader
}

// NewLoader creates a manifest loader with the SHA-256 digester.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger:       logger.With().Str("component", "manifest-loader").Logger(),
		digester:     SHA256Digester{},
		schemaLoader: gojsonschema.NewStringLoader(IdentitySchema),
	}
}

// Load runs the full pipeline: ingest, structural validation, compatibility
// gate, checksum, and checksum cross-check. It either returns a complete
// {manifest, checksum} pair or a single descriptive error; partial results
// are never produced.
func (l *Loader) Load(opts LoadOptions) (*LoadResult, error) {
	raw, carried, err := l.ingest(opts.Source)
	if err != nil {
		return nil, err
	}

	m := *raw
	normalize(&m)

	if len(m.Capabilities) == 0 {
		return nil, fmt.Errorf("manifest %s declares no valid capabilities: %w", describe(&m), ErrInvalidShape)
	}
	if m.Integrity != nil && m.Integrity.Algorithm != "sha256" {
		return nil, fmt.Errorf("manifest %s declares unsupported integrity algorithm %q: %w",
			describe(&m), m.Integrity.Algorithm, ErrInvalidShape)
	}

	if err := l.checkCompatibility(&m, opts.CurrentVersion); err != nil {
		return nil, err
	}

	checksum, err := Checksum(&m, l.digester)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: checksum failed: %w", describe(&m), err)
	}

	if err := crossCheck(&m, checksum, carried, opts.ExpectedChecksum); err != nil {
		return nil, err
	}

	l.logger.Debug().
		Str("id", m.ID).
		Str("version", m.Version).
		Str("checksum", checksum).
		Int("capabilities", len(m.Capabilities)).
		Msg("Manifest loaded")

	return &LoadResult{Manifest: &m, Checksum: checksum}, nil
}

// ingest extracts the raw manifest and any caller-known checksum from the
// source. Raw JSON and parsed objects both pass through the identity-shape
// schema so every path enforces the same minimal contract.
func (l *Loader) ingest(source any) (*Manifest, string, error) {
	switch src := source.(type) {
	case string:
		m, err := l.parse([]byte(src))
		return m, "", err
	case []byte:
		m, err := l.parse(src)
		return m, "", err
	case json.RawMessage:
		m, err := l.parse(src)
		return m, "", err
	case *Manifest:
		m, err := l.reparse(src)
		return m, "", err
	case Manifest:
		m, err := l.reparse(&src)
		return m, "", err
	case Verified:
		if src.Manifest == nil {
			return nil, "", fmt.Errorf("verified source carries no manifest: %w", ErrInvalidShape)
		}
		m, err := l.reparse(src.Manifest)
		return m, src.Checksum, err
	case *Verified:
		if src == nil || src.Manifest == nil {
			return nil, "", fmt.Errorf("verified source carries no manifest: %w", ErrInvalidShape)
		}
		m, err := l.reparse(src.Manifest)
		return m, src.Checksum, err
	default:
		return nil, "", fmt.Errorf("unsupported manifest source type %T: %w", source, ErrInvalidShape)
	}
}

// parse schema-validates raw JSON and decodes it into a Manifest.
func (l *Loader) parse(data []byte) (*Manifest, error) {
	if err := l.validateShape(data); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest does not decode: %v: %w", err, ErrInvalidShape)
	}
	return &m, nil
}

// reparse runs an already-parsed manifest back through the schema so object
// sources get the same shape check as raw JSON.
func (l *Loader) reparse(m *Manifest) (*Manifest, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("manifest %s does not serialize: %v: %w", describe(m), err, ErrInvalidShape)
	}
	if err := l.validateShape(data); err != nil {
		return nil, err
	}
	return m, nil
}

func (l *Loader) validateShape(data []byte) error {
	result, err := gojsonschema.Validate(l.schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("manifest is not valid JSON: %v: %w", err, ErrInvalidShape)
	}
	if !result.Valid() {
		var errMsg string
		for i, verr := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += verr.String()
		}
		return fmt.Errorf("manifest shape invalid: %s: %w", errMsg, ErrInvalidShape)
	}
	return nil
}

// checkCompatibility enforces the manifest's declared version window.
func (l *Loader) checkCompatibility(m *Manifest, currentVersion string) error {
	if m.Compatibility == nil {
		return nil
	}
	if min := m.Compatibility.MinVersion; min != "" && CompareVersions(currentVersion, min) < 0 {
		return fmt.Errorf("manifest %s requires version >= %s (current %s): %w",
			describe(m), min, currentVersion, ErrIncompatibleVersion)
	}
	if max := m.Compatibility.MaxVersion; max != "" && CompareVersions(currentVersion, max) > 0 {
		return fmt.Errorf("manifest %s is incompatible with current version %s (max %s): %w",
			describe(m), currentVersion, max, ErrIncompatibleVersion)
	}
	return nil
}

// crossCheck compares the computed digest against every checksum the caller
// or the manifest itself claims: the embedded integrity hash, the checksum
// carried with a Verified source, then any caller-supplied expectation.
// When none are present the computed digest is authoritative.
func crossCheck(m *Manifest, computed, carried, expected string) error {
	if m.Integrity != nil && m.Integrity.Hash != "" && m.Integrity.Hash != computed {
		return fmt.Errorf("manifest %s embedded hash %s does not match computed %s: %w",
			describe(m), m.Integrity.Hash, computed, ErrChecksumMismatch)
	}
	if carried != "" && carried != computed {
		return fmt.Errorf("manifest %s carried checksum %s does not match computed %s: %w",
			describe(m), carried, computed, ErrChecksumMismatch)
	}
	if expected != "" && expected != computed {
		return fmt.Errorf("manifest %s signature does not match expected checksum %s (computed %s): %w",
			describe(m), expected, computed, ErrChecksumMismatch)
	}
	return nil
}

func describe(m *Manifest) string {
	if m.ID != "" {
		return m.ID
	}
	return "<unidentified>"
}
