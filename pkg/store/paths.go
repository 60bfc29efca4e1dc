package store

import (
	"path/filepath"
	"strings"
)

// Stage checkpoint suffixes. Each pipeline stage saves its output next to
// the base wallet list under its own name, so every stage boundary survives
// a restart.
const (
	StageChecked   = "checked"
	StageSent      = "sent"
	StageConfirmed = "confirmed"
)

// StagePath derives a stage checkpoint path from the base list path:
// wallets.csv -> wallets.checked.csv. A base without an extension gets the
// stage name appended: wallets -> wallets.checked.
func StagePath(base, stage string) string {
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "." + stage + ext
}
