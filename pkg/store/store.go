// Package store persists recipient lists and balance snapshots as headerless
// CSV checkpoints: one record per line, fields in fixed order, sorted by
// holder address on every save so checkpoints diff cleanly across attempts.
package store

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/canopy-network/dropx/pkg/wallet"
)

// SaveList writes the list to path, rotating any pre-existing file to a
// backup first. The list is sorted in place before writing.
func SaveList(path string, l wallet.List) error {
	l.Sort()
	records := make([][]string, 0, len(l))
	for _, e := range l {
		records = append(records, e.Record())
	}
	return writeCSV(path, records)
}

// LoadList reads a recipient list checkpoint. Rows with a malformed holder
// or status fail the whole load; a malformed cached destination is dropped
// silently and recomputed by the next check pass.
func LoadList(path string) (wallet.List, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	list := make(wallet.List, 0, len(records))
	for i, record := range records {
		e, perr := wallet.ParseEntry(record)
		if perr != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, perr)
		}
		list = append(list, e)
	}
	list.Sort()
	return list, nil
}

// SaveSnapshot writes the balance snapshot to path, rotating any
// pre-existing file to a backup first.
func SaveSnapshot(path string, s wallet.Snapshot) error {
	s.Sort()
	records := make([][]string, 0, len(s))
	for _, r := range s {
		records = append(records, r.Record())
	}
	return writeCSV(path, records)
}

// LoadSnapshot reads a balance snapshot.
func LoadSnapshot(path string) (wallet.Snapshot, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	snap := make(wallet.Snapshot, 0, len(records))
	for i, record := range records {
		r, perr := wallet.ParseBalanceRecord(record)
		if perr != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, i+1, perr)
		}
		snap = append(snap, r)
	}
	snap.Sort()
	return snap, nil
}

func writeCSV(path string, records [][]string) error {
	if _, err := BackupIfExists(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create checkpoint %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write checkpoint %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush checkpoint %s: %w", path, err)
	}
	return f.Close()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
	}
	return records, nil
}
