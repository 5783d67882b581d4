package domain

import (
	"fmt"
	"strings"
)

// Account identifies a ledger bucket inside a hierarchical, colon separated namespace
// (e.g. "actif:groupe:42"). Accounts are not rows: an account exists as soon as an entry
// references it, and its balance is derived from the entry log.
type Account string

const (
	// AccountDonations is the revenue account every allocation is drawn from.
	AccountDonations Account = "revenu:dons"
	// AccountCNS is the solidarity fund redistributed across departements.
	AccountCNS Account = "actif:cns"
	// AccountNational receives whatever part of a payment is not explicitly allocated.
	AccountNational Account = "actif:national"
	// AccountSpending is the sink for settled spending requests.
	AccountSpending Account = "depenses"
)

const (
	rootRevenue  = "revenu"
	rootAsset    = "actif"
	rootSpending = "depenses"

	groupSegment       = "groupe"
	departementSegment = "departement"

	separator = ":"
)

// GroupAccount returns the asset account of a support group.
func GroupAccount(groupID string) Account {
	return Account(rootAsset + separator + groupSegment + separator + groupID)
}

// DepartementAccount returns the asset account of a departement.
func DepartementAccount(code string) Account {
	return Account(rootAsset + separator + departementSegment + separator + code)
}

// IsConstrained reports whether the account must never hold a negative balance.
// Every asset account is constrained; revenue and spending accounts are not.
func (a Account) IsConstrained() bool {
	return strings.HasPrefix(string(a), rootAsset+separator)
}

// GroupID returns the group id of a group account, or false for any other account.
func (a Account) GroupID() (string, bool) {
	prefix := rootAsset + separator + groupSegment + separator
	if !strings.HasPrefix(string(a), prefix) {
		return "", false
	}
	return strings.TrimPrefix(string(a), prefix), true
}

func (a Account) String() string { return string(a) }

// Validate checks that the account is well formed: a known root followed by non-empty segments.
func (a Account) Validate() error {
	if a == "" {
		return fmt.Errorf("account is required")
	}
	parts := strings.Split(string(a), separator)
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("account %q has an empty segment", a)
		}
	}
	switch parts[0] {
	case rootRevenue, rootAsset:
		if len(parts) < 2 {
			return fmt.Errorf("account %q must name a bucket under %s", a, parts[0])
		}
	case rootSpending:
	default:
		return fmt.Errorf("account %q has unknown root %q", a, parts[0])
	}
	return nil
}

// ParseAccount converts a raw identifier into a validated Account.
func ParseAccount(raw string) (Account, error) {
	a := Account(strings.TrimSpace(raw))
	if err := a.Validate(); err != nil {
		return "", err
	}
	return a, nil
}
