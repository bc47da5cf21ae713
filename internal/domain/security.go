package domain

// SecurityReport is the normalized result of the stage-4 security checks for
// one mint. Unavailable marks a fail-open pass: the vendor could not be
// reached and the token was let through unchecked.
type SecurityReport struct {
	Honeypot        bool // cannot be sold back
	MintableSupply  bool // mint authority still active
	Blacklist       bool // transfers can be blocked per holder
	FreezeAuthority bool // accounts can be frozen

	// TopHolderShare is the fraction of supply held by the top-10 holders,
	// nil when holder data was unavailable.
	TopHolderShare *float64

	// RiskScore in [0,100]; starts at 100 and pays a penalty per finding.
	RiskScore int

	Passed      bool
	Unavailable bool // fail-open: no vendor data backs this report
	CheckedAt   int64
}
