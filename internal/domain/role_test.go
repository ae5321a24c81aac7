package domain

import "testing"

func TestIsValidRole(t *testing.T) {
	cases := []struct {
		role Role
		ok   bool
	}{
		{RoleRoot, true},
		{RoleCreateAdmin, true},
		{RoleAdmin, true},
		{RoleDevToken, true},
		{RoleServToken, true},
		{"", false},
		{"root", false},
	}

	for _, c := range cases {
		if IsValidRole(c.role) != c.ok {
			t.Fatalf("unexpected IsValidRole(%q)", c.role)
		}
	}
}

func TestRoleIncludedHierarchy(t *testing.T) {
	root := RoleRoot.Included()
	for _, r := range []Role{RoleRoot, RoleCreateAdmin, RoleAdmin, RoleDevToken, RoleServToken} {
		if !root[r] {
			t.Fatalf("ROOT should include %v transitively", r)
		}
	}

	admin := RoleAdmin.Included()
	if !admin[RoleDevToken] || !admin[RoleServToken] {
		t.Fatalf("ADMIN should include DEV_TOKEN and SERV_TOKEN")
	}
	if admin[RoleRoot] || admin[RoleCreateAdmin] {
		t.Fatalf("ADMIN should not include roles above it")
	}

	dev := RoleDevToken.Included()
	if len(dev) != 1 || !dev[RoleDevToken] {
		t.Fatalf("DEV_TOKEN is terminal, should only include itself")
	}
}

func TestRoleSetOperations(t *testing.T) {
	a := NewRoleSet(RoleAdmin, RoleDevToken)
	b := NewRoleSet(RoleDevToken, RoleServToken)

	if u := a.Union(b); len(u) != 3 {
		t.Fatalf("expected union of 3, got %d", len(u))
	}
	if i := a.Intersect(b); len(i) != 1 || !i[RoleDevToken] {
		t.Fatalf("expected intersection {DEV_TOKEN}, got %+v", i)
	}
	if d := a.Difference(b); len(d) != 1 || !d[RoleAdmin] {
		t.Fatalf("expected difference {ADMIN}, got %+v", d)
	}
}
