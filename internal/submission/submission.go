package submission

import (
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// TimestampLayout is the on-disk format of the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Defaults applied to optional contact preferences.
const (
	DefaultIsMobile      = "no"
	DefaultContactMethod = "none"
)

// Submission is one contact-form inquiry.
// Field order matches the on-disk column order and must not change.
type Submission struct {
	ID                       string `csv:"id" json:"id"`
	Timestamp                string `csv:"Timestamp" json:"timestamp"`
	Name                     string `csv:"Name" json:"name"`
	Email                    string `csv:"Email" json:"email"`
	Car                      string `csv:"Car" json:"car"`
	Phone                    string `csv:"Phone" json:"phone"`
	IsMobile                 string `csv:"Is Mobile" json:"is_mobile"`
	ContactMethod            string `csv:"Contact Method" json:"contact_method"`
	BestTimeToCall           string `csv:"Best Time to Call" json:"best_time_to_call"`
	PreferredAppointmentTime string `csv:"Preferred Appointment Time" json:"preferred_appointment_time"`
	Message                  string `csv:"Message" json:"message"`
	VehicleType              string `csv:"Vehicle Type" json:"vehicle_type"`
	Services                 string `csv:"Services" json:"services"`
	Total                    string `csv:"Total" json:"total"`
	Status                   Status `csv:"Status" json:"status"`
}

// Header is the canonical header row, in column order.
var Header = []string{
	"id",
	"Timestamp",
	"Name",
	"Email",
	"Car",
	"Phone",
	"Is Mobile",
	"Contact Method",
	"Best Time to Call",
	"Preferred Appointment Time",
	"Message",
	"Vehicle Type",
	"Services",
	"Total",
	"Status",
}

// Fields is the user-supplied part of a new submission.
type Fields struct {
	Name                     string
	Email                    string
	Car                      string
	Phone                    string
	IsMobile                 string
	ContactMethod            string
	BestTimeToCall           string
	PreferredAppointmentTime string
	Message                  string
	VehicleType              string
	Services                 []string
	Total                    string
}

// New builds an inbox submission from fields with a fresh id and the given creation time.
// Every value is trimmed; optional preferences fall back to their defaults.
func New(f Fields, now time.Time) Submission {
	isMobile := strings.TrimSpace(f.IsMobile)
	if isMobile == "" {
		isMobile = DefaultIsMobile
	}
	contactMethod := strings.TrimSpace(f.ContactMethod)
	if contactMethod == "" {
		contactMethod = DefaultContactMethod
	}

	return Submission{
		ID:                       NewID(),
		Timestamp:                now.Format(TimestampLayout),
		Name:                     strings.TrimSpace(f.Name),
		Email:                    strings.TrimSpace(f.Email),
		Car:                      strings.TrimSpace(f.Car),
		Phone:                    strings.TrimSpace(f.Phone),
		IsMobile:                 isMobile,
		ContactMethod:            contactMethod,
		BestTimeToCall:           strings.TrimSpace(f.BestTimeToCall),
		PreferredAppointmentTime: strings.TrimSpace(f.PreferredAppointmentTime),
		Message:                  strings.TrimSpace(f.Message),
		VehicleType:              strings.TrimSpace(f.VehicleType),
		Services:                 JoinServices(f.Services),
		Total:                    CanonicalTotal(f.Total),
		Status:                   StatusInbox,
	}
}

// NewID returns a fresh ULID. ulid.Make is monotonic within a process,
// so ids generated in sequence also sort in creation order.
func NewID() string {
	return ulid.Make().String()
}

// IsEmpty reports whether the submission carries no user-entered content.
func (s Submission) IsEmpty() bool {
	for _, v := range []string{s.Name, s.Email, s.Car, s.Phone, s.Message} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// IsEmptyInbox reports whether the submission is junk that belongs in trash.
func (s Submission) IsEmptyInbox() bool {
	return NormalizeStatus(string(s.Status)) == StatusInbox && s.IsEmpty()
}

// JoinServices trims each service, drops blanks and joins the rest with ", ".
func JoinServices(services []string) string {
	kept := make([]string, 0, len(services))
	for _, s := range services {
		s = strings.TrimSpace(s)
		if s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ", ")
}

// CanonicalTotal renders a decimal total in plain notation ("1e3" -> "1000").
// Blank input stays blank; unparsable input is dropped with a warning.
func CanonicalTotal(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = strings.TrimPrefix(raw, "$")
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		slog.Warn("dropping unparsable total", "total", raw, "error", err)
		return ""
	}
	return d.String()
}

// Values returns the record's fields in column order, aligned with Header.
func (s Submission) Values() []string {
	return []string{
		s.ID,
		s.Timestamp,
		s.Name,
		s.Email,
		s.Car,
		s.Phone,
		s.IsMobile,
		s.ContactMethod,
		s.BestTimeToCall,
		s.PreferredAppointmentTime,
		s.Message,
		s.VehicleType,
		s.Services,
		s.Total,
		string(s.Status),
	}
}
