package policy

import (
	"testing"

	"github.com/google/uuid"
)

type fakeResource struct {
	owner     uuid.UUID
	published bool
}

func (r fakeResource) OwnerUserID() uuid.UUID { return r.owner }
func (r fakeResource) Published() bool        { return r.published }

func TestEvaluate(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()

	cases := []struct {
		name   string
		policy Policy
		userID uuid.UUID
		res    fakeResource
		want   bool
	}{
		{"owner_only allows owner", OwnerOnly, owner, fakeResource{owner: owner}, true},
		{"owner_only rejects stranger", OwnerOnly, stranger, fakeResource{owner: owner}, false},
		{"not_published allows draft", NotPublished, stranger, fakeResource{published: false}, true},
		{"not_published rejects published", NotPublished, stranger, fakeResource{published: true}, false},
		{"published_only allows published", PublishedOnly, stranger, fakeResource{published: true}, true},
		{"published_only rejects draft", PublishedOnly, stranger, fakeResource{published: false}, false},
		{"published_or_owner allows published", PublishedOrOwner, stranger, fakeResource{owner: owner, published: true}, true},
		{"published_or_owner allows owner of draft", PublishedOrOwner, owner, fakeResource{owner: owner, published: false}, true},
		{"published_or_owner rejects stranger on draft", PublishedOrOwner, stranger, fakeResource{owner: owner, published: false}, false},
		{"unknown policy is permissive", Policy("future_rule"), stranger, fakeResource{}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Evaluate(tc.policy, tc.userID, tc.res); got != tc.want {
				t.Fatalf("Evaluate(%q) = %v, want %v", tc.policy, got, tc.want)
			}
		})
	}
}

func TestEvaluateAllIsConjunction(t *testing.T) {
	owner := uuid.New()
	res := fakeResource{owner: owner, published: true}

	if !EvaluateAll([]Policy{PublishedOnly, OwnerOnly}, owner, res) {
		t.Fatal("owner of published resource should satisfy both policies")
	}
	if EvaluateAll([]Policy{PublishedOnly, OwnerOnly}, uuid.New(), res) {
		t.Fatal("stranger fails owner_only, so the conjunction must fail")
	}
	if !EvaluateAll(nil, uuid.New(), res) {
		t.Fatal("empty policy set must allow")
	}
}

func TestFromStrings(t *testing.T) {
	got := FromStrings([]string{"owner_only", "someday_rule"})
	if len(got) != 2 || got[0] != OwnerOnly || got[1] != Policy("someday_rule") {
		t.Fatalf("FromStrings = %v", got)
	}
	if FromStrings(nil) != nil {
		t.Fatal("nil in, nil out")
	}
}
