package identifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrIdentifierConflict is returned by callers once their bounded retry
// budget for identifier allocation is exhausted.
var ErrIdentifierConflict = errors.New("identifier_conflict")

// Human-readable identifiers are sequential per prefix: the allocator scans
// for the highest existing identifier under the prefix and increments its
// trailing numeric segment. There is no counter table and no lock, so two
// concurrent allocations can hand out the same identifier; the unique index
// on the identifier column rejects the loser and callers re-allocate.

const sequenceWidth = 4

type Params struct {
	fx.In

	Log *zap.Logger
}

type Allocator struct {
	log *zap.Logger
}

func New(p Params) *Allocator {
	return &Allocator{
		log: p.Log.Named("identifier.allocator"),
	}
}

// Next returns the next identifier for the given table/column under prefix.
// The table and column names are compile-time constants owned by the calling
// service, never user input.
func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, table, column, prefix string) (string, error) {
	var last string
	err := tx.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s LIKE ? ORDER BY %s DESC LIMIT 1`, column, table, column, column),
		prefix+"%",
	).Scan(&last).Error
	if err != nil {
		return "", err
	}

	next := 1
	if last != "" {
		next = parseSequence(last) + 1
	}

	return fmt.Sprintf("%s%0*d", prefix, sequenceWidth, next), nil
}

// FromSerial derives the numeric segment from the last four characters of a
// manufacturer serial number instead of incrementing. The result is not
// guaranteed unique; the caller surfaces the database uniqueness violation.
func FromSerial(prefix, serial string) (string, bool) {
	serial = strings.TrimSpace(serial)
	if len(serial) < sequenceWidth {
		return "", false
	}
	segment := serial[len(serial)-sequenceWidth:]
	return prefix + segment, true
}

// parseSequence extracts the trailing numeric segment of an identifier.
// A malformed predecessor counts as zero so allocation restarts at one
// rather than failing.
func parseSequence(id string) int {
	idx := strings.LastIndex(id, "-")
	if idx < 0 || idx+1 >= len(id) {
		return 0
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

// JobPrefix scopes job identifiers by calendar year: JOB-2025-.
func JobPrefix(year int) string {
	return fmt.Sprintf("JOB-%d-", year)
}

// ClientPrefix scopes client identifiers by calendar year: CLI-2025-.
func ClientPrefix(year int) string {
	return fmt.Sprintf("CLI-%d-", year)
}

// MaterialPrefix scopes material identifiers by category and type: PRT-PLA-.
func MaterialPrefix(categoryCode, typeCode string) string {
	return fmt.Sprintf("%s-%s-", strings.ToUpper(categoryCode), strings.ToUpper(typeCode))
}

// MachinePrefix scopes machine identifiers by machine type: FDM-.
func MachinePrefix(typeCode string) string {
	return strings.ToUpper(typeCode) + "-"
}

// PersonalJobID builds the fixed per-user personal job identifier,
// PERS-<first four of username, uppercased>-<year>.
func PersonalJobID(username string, year int) string {
	name := strings.ToUpper(strings.TrimSpace(username))
	if len(name) > 4 {
		name = name[:4]
	}
	return fmt.Sprintf("PERS-%s-%d", name, year)
}

// Year reports the allocation year for a timestamp.
func Year(t time.Time) int {
	return t.UTC().Year()
}
