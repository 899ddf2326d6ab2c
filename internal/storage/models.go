package storage

import "time"

// InfoID is the primary key of the only info row.
const InfoID = 0

type Admin struct {
	ID           int64
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}

type Info struct {
	Address   string
	City      string
	Latitude  float64
	Longitude float64
	DateStart time.Time
	DateEnd   time.Time
}

// InfoPatch carries a partial update; nil fields are left unchanged.
type InfoPatch struct {
	Address   *string
	City      *string
	Latitude  *float64
	Longitude *float64
	DateStart *time.Time
	DateEnd   *time.Time
}

func (p InfoPatch) Empty() bool {
	return p.Address == nil && p.City == nil && p.Latitude == nil &&
		p.Longitude == nil && p.DateStart == nil && p.DateEnd == nil
}

type ScheduleDay struct {
	ID       string
	Day      time.Time
	Sections []ScheduleSection
}

type ScheduleSection struct {
	ID   string
	Name string
	Time time.Time
}

type Feedback struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Answered    bool      `json:"answered"`
	Fingerprint string    `json:"fingerprint"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	CommandName *string   `json:"commandName"`
	Message     string    `json:"message"`
}

type FeedbackCreateParams struct {
	Fingerprint string
	Name        string
	Email       string
	CommandName *string
	Message     string
}

const (
	FormatOnline  = "online"
	FormatOffline = "offline"
)

type Register struct {
	ID           int64         `json:"id"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	Answered     bool          `json:"answered"`
	Fingerprint  string        `json:"fingerprint"`
	CommandName  string        `json:"commandName"`
	Format       string        `json:"format"`
	Participants []Participant `json:"participants"`
}

type Participant struct {
	ID             int64     `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	MiddleName     *string   `json:"middleName"`
	Organization   string    `json:"organization"`
	DateOfBirth    time.Time `json:"dateOfBirth"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phoneNumber"`
	Specialization string    `json:"specialization"`
	Stack          string    `json:"stack"`
}

type RegisterCreateParams struct {
	Fingerprint  string
	CommandName  string
	Format       string
	Participants []Participant
}
