package models

// AccessScope restricts queries to a single OIA when set.
type AccessScope struct {
	OiaID *int64
}

// Unrestricted is the scope of callers holding the broad read permission.
func Unrestricted() AccessScope {
	return AccessScope{}
}

// OwnOia limits results to rows belonging to oiaID.
func OwnOia(oiaID int64) AccessScope {
	return AccessScope{OiaID: &oiaID}
}

func (s AccessScope) Restricted() bool {
	return s.OiaID != nil
}

// Allows reports whether a row owned by oiaID is visible in this scope.
func (s AccessScope) Allows(oiaID int64) bool {
	return s.OiaID == nil || *s.OiaID == oiaID
}
