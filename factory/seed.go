/*
Package factory converts JSON seed documents into domain records.

PURPOSE:
  Demo and test data is written as JSON so it can change without code
  changes. The factory validates each document and produces users,
  balances, leave history and holidays ready to be stored.

JSON SCHEMA:
  {
    "id": "default",
    "name": "Demo Company",
    "users": [
      {
        "email": "employee@example.com",
        "name": "Kara Thrace",
        "role": "employee",
        "password": "password",
        "balances": [ ... ],          // optional, overrides the document default
        "history": [
          {"id": "L001", "leave_type": "Annual", "start_date": "2023-11-10",
           "end_date": "2023-11-12", "status": "Approved", "reason": "Vacation"}
        ]
      }
    ],
    "balances": [                     // default for every user
      {"leave_type": "Annual", "available": 12, "total": 20},
      {"leave_type": "LOP Taken", "available": 0, "unlimited": true}
    ],
    "holidays": [
      {"date": "2024-01-01", "name": "New Year's Day", "type": "National Holiday"}
    ]
  }

DEFAULTS:
  - No balances anywhere: leave.StandardBalances()
  - History without applied_on: the start date
  - History without status: pending
  - Charged days are always computed, never read from the document
  - User ids are derived from the email unless given

USAGE:
  scenario, err := factory.LoadScenario("default")
  for _, u := range scenario.Users { ... }

SEE ALSO:
  - scenarios/*.json: Embedded documents
  - api/scenarios.go: Applies a scenario to a store
*/
package factory

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/empowerflow/portal/auth"
	"github.com/empowerflow/portal/generic"
	"github.com/empowerflow/portal/leave"
	"github.com/google/uuid"
)

//go:embed scenarios/*.json
var embedded embed.FS

var ErrUnknownScenario = errors.New("unknown scenario")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type ScenarioJSON struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category,omitempty"`
	Users       []UserJSON    `json:"users"`
	Balances    []BalanceJSON `json:"balances,omitempty"`
	Holidays    []HolidayJSON `json:"holidays,omitempty"`
}

type UserJSON struct {
	ID       string        `json:"id,omitempty"`
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Role     string        `json:"role"`
	Password string        `json:"password"`
	Balances []BalanceJSON `json:"balances,omitempty"`
	History  []RequestJSON `json:"history,omitempty"`
}

type BalanceJSON struct {
	LeaveType string   `json:"leave_type"`
	Available float64  `json:"available"`
	Total     *float64 `json:"total,omitempty"`
	Unlimited bool     `json:"unlimited,omitempty"`
}

type RequestJSON struct {
	ID            string `json:"id"`
	LeaveType     string `json:"leave_type"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	StartSession  string `json:"start_session,omitempty"`
	EndSession    string `json:"end_session,omitempty"`
	Status        string `json:"status,omitempty"`
	Reason        string `json:"reason"`
	ContactNumber string `json:"contact_number,omitempty"`
	AppliedOn     string `json:"applied_on,omitempty"`
}

type HolidayJSON struct {
	ID        string `json:"id,omitempty"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Recurring bool   `json:"recurring,omitempty"`
}

// =============================================================================
// PARSED SCENARIO
// =============================================================================

type ScenarioInfo struct {
	ID          string
	Name        string
	Description string
	Category    string
}

type Scenario struct {
	ScenarioInfo
	Users    []SeedUser
	Holidays []generic.Holiday
}

// SeedUser is an account to create. PasswordHash is left empty; the
// caller hashes Password.
type SeedUser struct {
	User     auth.User
	Password string
	Balances []leave.LeaveBalance
	History  []leave.LeaveRequest
}

// UserID derives a stable id from an email address.
func UserID(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(strings.TrimSpace(email)))).String()
}

// ParseScenario parses and validates a JSON document.
func ParseScenario(data []byte) (*Scenario, error) {
	var sj ScenarioJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		return nil, fmt.Errorf("failed to parse scenario JSON: %w", err)
	}
	return FromJSON(sj)
}

// FromJSON converts a ScenarioJSON into domain records.
func FromJSON(sj ScenarioJSON) (*Scenario, error) {
	if strings.TrimSpace(sj.ID) == "" {
		return nil, fmt.Errorf("scenario: id is required")
	}
	sc := &Scenario{ScenarioInfo: ScenarioInfo{
		ID: sj.ID, Name: sj.Name, Description: sj.Description, Category: sj.Category,
	}}

	defaults, err := parseBalances(sj.Balances)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sj.ID, err)
	}
	if len(defaults) == 0 {
		defaults = leave.StandardBalances()
	}

	seenEmail := make(map[string]bool)
	seenRequest := make(map[string]bool)
	for _, uj := range sj.Users {
		su, err := parseUser(uj, defaults)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sj.ID, err)
		}
		if seenEmail[su.User.Email] {
			return nil, fmt.Errorf("scenario %s: duplicate user %s", sj.ID, su.User.Email)
		}
		seenEmail[su.User.Email] = true
		for _, r := range su.History {
			if seenRequest[r.ID] {
				return nil, fmt.Errorf("scenario %s: duplicate request id %s", sj.ID, r.ID)
			}
			seenRequest[r.ID] = true
		}
		sc.Users = append(sc.Users, su)
	}

	for i, hj := range sj.Holidays {
		h, err := parseHoliday(hj, sj.ID, i)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", sj.ID, err)
		}
		sc.Holidays = append(sc.Holidays, h)
	}
	return sc, nil
}

func parseUser(uj UserJSON, defaults []leave.LeaveBalance) (SeedUser, error) {
	email := strings.ToLower(strings.TrimSpace(uj.Email))
	if email == "" {
		return SeedUser{}, fmt.Errorf("user: email is required")
	}
	role, err := auth.ParseRole(uj.Role)
	if err != nil {
		return SeedUser{}, fmt.Errorf("user %s: %w", email, err)
	}
	if uj.Password == "" {
		return SeedUser{}, fmt.Errorf("user %s: password is required", email)
	}

	id := uj.ID
	if id == "" {
		id = UserID(email)
	}
	su := SeedUser{
		User:     auth.User{ID: id, Email: email, Name: strings.TrimSpace(uj.Name), Role: role},
		Password: uj.Password,
	}

	balances, err := parseBalances(uj.Balances)
	if err != nil {
		return SeedUser{}, fmt.Errorf("user %s: %w", email, err)
	}
	if len(balances) == 0 {
		balances = defaults
	}
	su.Balances = append([]leave.LeaveBalance(nil), balances...)

	for _, rj := range uj.History {
		r, err := parseRequest(rj, generic.EntityID(id))
		if err != nil {
			return SeedUser{}, fmt.Errorf("user %s: %w", email, err)
		}
		su.History = append(su.History, r)
	}
	return su, nil
}

func parseBalances(list []BalanceJSON) ([]leave.LeaveBalance, error) {
	var out []leave.LeaveBalance
	for _, bj := range list {
		var b leave.LeaveBalance
		switch {
		case bj.Unlimited:
			b = leave.RunningTotal(bj.LeaveType, bj.Available)
		case bj.Total != nil:
			b = leave.Quota(bj.LeaveType, bj.Available, *bj.Total)
		default:
			b = leave.LeaveBalance{
				LeaveTypeID: bj.LeaveType,
				Available:   generic.NewAmount(bj.Available, generic.UnitDays),
				Unit:        generic.UnitDays,
			}
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func parseRequest(rj RequestJSON, entityID generic.EntityID) (leave.LeaveRequest, error) {
	var seq int64
	if _, err := fmt.Sscanf(rj.ID, "L%d", &seq); err != nil || seq <= 0 {
		return leave.LeaveRequest{}, fmt.Errorf("request id %q: want L<number>", rj.ID)
	}
	start, err := generic.ParseDate(rj.StartDate)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", rj.ID, err)
	}
	end, err := generic.ParseDate(rj.EndDate)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", rj.ID, err)
	}
	if end.Before(start) {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", rj.ID, leave.ErrInvalidRange)
	}
	startSession, err := leave.ParseSession(rj.StartSession)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", rj.ID, err)
	}
	endSession, err := leave.ParseSession(rj.EndSession)
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", rj.ID, err)
	}

	status := leave.StatusPending
	if rj.Status != "" {
		if status, err = leave.ParseStatus(rj.Status); err != nil {
			return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", rj.ID, err)
		}
	}

	applied := start
	if rj.AppliedOn != "" {
		if applied, err = generic.ParseDate(rj.AppliedOn); err != nil {
			return leave.LeaveRequest{}, fmt.Errorf("request %s: %w", rj.ID, err)
		}
	}

	return leave.LeaveRequest{
		ID:            leave.FormatRequestID(seq),
		Seq:           seq,
		EntityID:      entityID,
		LeaveTypeID:   rj.LeaveType,
		StartDate:     start,
		EndDate:       end,
		StartSession:  startSession,
		EndSession:    endSession,
		ChargedDays:   leave.CalculateDays(start, end, startSession, endSession),
		Reason:        rj.Reason,
		ContactNumber: rj.ContactNumber,
		Status:        status,
		AppliedOn:     applied,
	}, nil
}

func parseHoliday(hj HolidayJSON, scenarioID string, index int) (generic.Holiday, error) {
	date, err := generic.ParseDate(hj.Date)
	if err != nil {
		return generic.Holiday{}, fmt.Errorf("holiday %q: %w", hj.Name, err)
	}
	if strings.TrimSpace(hj.Name) == "" {
		return generic.Holiday{}, fmt.Errorf("holiday on %s: name is required", hj.Date)
	}
	id := hj.ID
	if id == "" {
		id = fmt.Sprintf("%s-holiday-%d", scenarioID, index+1)
	}
	typ := generic.HolidayType(hj.Type)
	if typ == "" {
		typ = generic.HolidayNational
	}
	return generic.Holiday{ID: id, Date: date, Name: hj.Name, Type: typ, Recurring: hj.Recurring}, nil
}

// =============================================================================
// EMBEDDED SCENARIOS
// =============================================================================

// Scenarios lists the embedded scenarios ordered by id.
func Scenarios() ([]ScenarioInfo, error) {
	entries, err := embedded.ReadDir("scenarios")
	if err != nil {
		return nil, err
	}
	var out []ScenarioInfo
	for _, e := range entries {
		sc, err := readEmbedded(e.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, sc.ScenarioInfo)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadScenario parses one embedded scenario by id.
func LoadScenario(id string) (*Scenario, error) {
	sc, err := readEmbedded(id + ".json")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScenario, id)
	}
	if err != nil {
		return nil, err
	}
	return sc, nil
}

func readEmbedded(name string) (*Scenario, error) {
	data, err := embedded.ReadFile(path.Join("scenarios", name))
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}
