package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"

	insured "assura/internal/insured/models"
	id "assura/pkg/domain"
	"assura/pkg/testutil"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Step(`^the GDPR service is running$`, tc.serviceIsRunning)

	// Data steps
	ctx.Step(`^an insured person "([^"]*)" with national ID "([^"]*)"$`, tc.insuredPerson)
	ctx.Step(`^"([^"]*)" has an? (active|inactive|terminated) contract$`, tc.hasContract)
	ctx.Step(`^"([^"]*)" has an? (active|inactive|terminated) contract with a (\w+) claim$`, tc.hasContractWithClaim)

	// Auth steps
	ctx.Step(`^I am signed in as user (\d+) with role "([^"]*)"$`, tc.signedInAs)
	ctx.Step(`^I am not signed in$`, tc.notSignedIn)

	// Request steps
	ctx.Step(`^I GET "([^"]*)"$`, tc.get)
	ctx.Step(`^I anonymize "([^"]*)" because "([^"]*)"$`, tc.anonymize)
	ctx.Step(`^I grant "([^"]*)" consent for "([^"]*)" with purpose "([^"]*)"$`, tc.grantConsent)
	ctx.Step(`^I revoke "([^"]*)" consent for "([^"]*)"$`, tc.revokeConsent)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response should not contain "([^"]*)"$`, tc.responseShouldNotContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the audit log for "([^"]*)" should list actions "([^"]*)"$`, tc.auditLogShouldList)
	ctx.Step(`^"([^"]*)" should be stored encrypted$`, tc.shouldBeStoredEncrypted)
}

func (tc *TestContext) serviceIsRunning(context.Context) error {
	return tc.Do(http.MethodGet, "/health", nil)
}

func (tc *TestContext) insuredPerson(ctx context.Context, name, nationalID string) error {
	p := testutil.NewPersonBuilder().WithNationalID(nationalID).Build()
	if err := tc.persons.CreatePerson(ctx, p); err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	tc.people[name] = p
	return nil
}

func (tc *TestContext) person(name string) (*insured.Person, error) {
	p, ok := tc.people[name]
	if !ok {
		return nil, fmt.Errorf("unknown person %q", name)
	}
	return p, nil
}

func (tc *TestContext) hasContract(ctx context.Context, name, status string) error {
	_, err := tc.createContract(ctx, name, status)
	return err
}

func (tc *TestContext) hasContractWithClaim(ctx context.Context, name, status, claimStatus string) error {
	contract, err := tc.createContract(ctx, name, status)
	if err != nil {
		return err
	}
	st, err := insured.ParseClaimStatus(claimStatus)
	if err != nil {
		return err
	}
	claim := testutil.NewClaimBuilder(contract.InsuredPersonID).OnContract(contract.ID).WithStatus(st).Build()
	return tc.persons.CreateClaim(ctx, claim)
}

func (tc *TestContext) createContract(ctx context.Context, name, status string) (*insured.Contract, error) {
	p, err := tc.person(name)
	if err != nil {
		return nil, err
	}
	st, err := insured.ParseContractStatus(status)
	if err != nil {
		return nil, err
	}
	contract := testutil.NewContractBuilder(p.ID).WithStatus(st).Build()
	if err := tc.persons.CreateContract(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (tc *TestContext) signedInAs(_ context.Context, userID int, role string) error {
	r, err := id.ParseRole(role)
	if err != nil {
		return err
	}
	return tc.signIn(id.UserID(userID), r)
}

func (tc *TestContext) notSignedIn(context.Context) error {
	tc.AccessToken = ""
	return nil
}

func (tc *TestContext) get(_ context.Context, path string) error {
	path, err := tc.personPath(path)
	if err != nil {
		return err
	}
	return tc.Do(http.MethodGet, path, nil)
}

func (tc *TestContext) anonymize(_ context.Context, name, reason string) error {
	p, err := tc.person(name)
	if err != nil {
		return err
	}
	return tc.Do(http.MethodPost, "/gdpr/anonymize/"+p.ID.String(), map[string]string{"reason": reason})
}

func (tc *TestContext) grantConsent(_ context.Context, category, name, purpose string) error {
	p, err := tc.person(name)
	if err != nil {
		return err
	}
	return tc.Do(http.MethodPost, "/gdpr/consent/"+p.ID.String(), map[string]string{
		"category": category,
		"purpose":  purpose,
	})
}

func (tc *TestContext) revokeConsent(_ context.Context, category, name string) error {
	p, err := tc.person(name)
	if err != nil {
		return err
	}
	return tc.Do(http.MethodDelete, "/gdpr/consent/"+p.ID.String(), map[string]string{"category": category})
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expected int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response received")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseShouldContain(_ context.Context, text string) error {
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q: %s", text, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseShouldNotContain(_ context.Context, text string) error {
	if tc.ResponseContains(text) {
		return fmt.Errorf("response unexpectedly contains %q", text)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	var actual string
	switch v := value.(type) {
	case string:
		actual = v
	case bool:
		actual = strconv.FormatBool(v)
	case float64:
		actual = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		actual = fmt.Sprint(v)
	}
	if actual != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, actual)
	}
	return nil
}

// auditLogShouldList compares comma-separated actions, newest first.
func (tc *TestContext) auditLogShouldList(_ context.Context, name, actions string) error {
	p, err := tc.person(name)
	if err != nil {
		return err
	}
	saved := tc.AccessToken
	if err := tc.signIn(1, id.RoleAdmin); err != nil {
		return err
	}
	defer func() { tc.AccessToken = saved }()

	if err := tc.Do(http.MethodGet, "/gdpr/audit-log/"+p.ID.String(), nil); err != nil {
		return err
	}
	var body struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &body); err != nil {
		return fmt.Errorf("failed to decode audit log: %w", err)
	}
	var got string
	for i, e := range body.Entries {
		if i > 0 {
			got += ","
		}
		got += e.Action
	}
	if got != actions {
		return fmt.Errorf("expected audit actions %q, got %q", actions, got)
	}
	return nil
}

func (tc *TestContext) shouldBeStoredEncrypted(_ context.Context, name string) error {
	p, err := tc.person(name)
	if err != nil {
		return err
	}
	raw, ok := tc.persons.RawPerson(p.ID)
	if !ok {
		return fmt.Errorf("person %q not stored", name)
	}
	if raw.FirstName == p.FirstName || raw.NationalID == p.NationalID {
		return fmt.Errorf("person %q is stored in plaintext", name)
	}
	return nil
}
