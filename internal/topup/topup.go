// Package topup ingests batches of stored balance top-ups exported by the
// payment provider as gzip-compressed CSV files.
//
// Each line is "reference,customer_id,amount". A reference that shows up in
// more than one file was exported twice by the provider and is quarantined
// instead of credited. Duplicates inside a single file are collapsed by the
// ledger's reference uniqueness.
package topup

import (
	"bufio"
	"context"
	"math/bits"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/drinkhub/internal/domain/ledger"
	"github.com/xenking/drinkhub/internal/domain/user"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	maxFiles      = 64
)

// ErrMalformedLine is returned for lines that do not parse.
var ErrMalformedLine = errors.New("malformed top-up line")

// Record is a single top-up.
type Record struct {
	Reference  string
	CustomerID int64
	Amount     int64
}

// ParseLine parses "reference,customer_id,amount".
func ParseLine(line string) (Record, error) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 3 {
		return Record{}, errors.Wrapf(ErrMalformedLine, "%q", line)
	}
	ref := strings.TrimSpace(parts[0])
	if ref == "" {
		return Record{}, errors.Wrapf(ErrMalformedLine, "%q: empty reference", line)
	}
	customerID, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil || customerID <= 0 {
		return Record{}, errors.Wrapf(ErrMalformedLine, "%q: customer id", line)
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil || amount <= 0 {
		return Record{}, errors.Wrapf(ErrMalformedLine, "%q: amount", line)
	}
	return Record{Reference: ref, CustomerID: customerID, Amount: amount}, nil
}

// Batch is the outcome of scanning a set of files.
type Batch struct {
	Accepted    []Record
	Quarantined []string
	// Malformed counts skipped lines over all files.
	Malformed int
}

type fileScan struct {
	accepted  []Record
	suspects  []Record
	mask      map[string]uint
	malformed int
}

// Scan reads every file twice. The first pass builds one bloom filter per
// file concurrently. The second pass checks each record against the other
// files' filters and confirms hits exactly, so false positives never
// quarantine a record.
func Scan(ctx context.Context, files []string) (*Batch, error) {
	if len(files) > maxFiles {
		return nil, errors.Errorf("too many files: %d (max %d)", len(files), maxFiles)
	}

	filters := make([]*bloom.BloomFilter, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			if err := streamFile(gctx, path, func(r Record) {
				filter.AddString(r.Reference)
			}, func() {}); err != nil {
				return errors.Wrapf(err, "index %s", path)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scans := make([]fileScan, len(files))
	g, gctx = errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			s := fileScan{mask: make(map[string]uint)}
			bit := uint(1) << uint(i)
			err := streamFile(gctx, path, func(r Record) {
				for j, f := range filters {
					if j != i && f.TestString(r.Reference) {
						s.mask[r.Reference] |= bit
						s.suspects = append(s.suspects, r)
						return
					}
				}
				s.accepted = append(s.accepted, r)
			}, func() { s.malformed++ })
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			scans[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, s := range scans {
		for ref, m := range s.mask {
			merged[ref] |= m
		}
	}

	batch := &Batch{}
	quarantined := make(map[string]struct{})
	for _, s := range scans {
		batch.Accepted = append(batch.Accepted, s.accepted...)
		batch.Malformed += s.malformed
		for _, r := range s.suspects {
			if bits.OnesCount(merged[r.Reference]) < 2 {
				batch.Accepted = append(batch.Accepted, r)
				continue
			}
			if _, ok := quarantined[r.Reference]; !ok {
				quarantined[r.Reference] = struct{}{}
				batch.Quarantined = append(batch.Quarantined, r.Reference)
			}
		}
	}
	return batch, nil
}

func streamFile(ctx context.Context, path string, fn func(Record), malformed func()) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := ParseLine(line)
		if err != nil {
			malformed()
			continue
		}
		fn(r)
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read")
	}
	return nil
}

// InTxFunc runs fn in a storage transaction.
type InTxFunc func(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error

// Result counts what Apply did.
type Result struct {
	Credited         int
	Duplicates       int
	UnknownCustomers int
}

// Apply credits every record in its own transaction. Already recorded
// references and unknown customers are counted and skipped.
func Apply(ctx context.Context, inTx InTxFunc, records []Record) (Result, error) {
	var (
		res Result
		l   = ledger.New()
	)
	for _, r := range records {
		err := inTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			return l.Credit(ctx, tx, ledger.Movement{
				CustomerID: r.CustomerID,
				Amount:     r.Amount,
				Reason:     ledger.ReasonTopUp,
				Reference:  r.Reference,
			})
		})
		switch {
		case err == nil:
			res.Credited++
		case errors.Is(err, ledger.ErrDuplicateReference):
			res.Duplicates++
		case errors.Is(err, user.ErrCustomerNotFound):
			res.UnknownCustomers++
		default:
			return res, errors.Wrapf(err, "credit %s", r.Reference)
		}
	}
	return res, nil
}
