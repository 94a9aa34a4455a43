package emailsvc

import (
	"net/mail"
	"testing"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ies/core"
	logsvc "github.com/trezcool/ies/services/logger"
)

func Test_sendgridService_prepare(t *testing.T) {
	svc, ok := NewSendgridService(core.NewTestConfig(), logsvc.NewRollbarLoggerMock()).(*sendgridService)
	require.True(t, ok)

	student := mail.Address{Name: "Stu", Address: "stu@student.buksu.edu.ph"}
	faculty := mail.Address{Name: "Prof", Address: "prof@buksu.edu.ph"}
	sender := mail.Address{Address: "noreply@localhost"}

	tests := []struct {
		name    string
		msg     core.EmailMessage
		wantTo  []string
		wantCc  []string
		wantBcc []string
	}{
		{
			name:    "bcc only",
			msg:     core.EmailMessage{Bcc: []mail.Address{student, {Address: "ann@student.buksu.edu.ph"}}},
			wantTo:  []string{"noreply@localhost"},
			wantBcc: []string{student.Address, "ann@student.buksu.edu.ph"},
		},
		{
			name:    "sender in bcc",
			msg:     core.EmailMessage{Bcc: []mail.Address{sender, student}},
			wantTo:  []string{"noreply@localhost"},
			wantBcc: []string{student.Address},
		},
		{
			name:    "to, cc and bcc",
			msg:     core.EmailMessage{To: []mail.Address{faculty}, Cc: []mail.Address{student}, Bcc: []mail.Address{{Address: "PROF@buksu.edu.ph"}}},
			wantTo:  []string{faculty.Address},
			wantCc:  []string{student.Address},
			wantBcc: nil,
		},
	}
	addresses := func(emails []*sgmail.Email) []string {
		var got []string
		for _, e := range emails {
			got = append(got, e.Address)
		}
		return got
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.msg.Subject = "New Evaluation Form: Midterm"
			m := svc.prepare(tt.msg)

			assert.Equal(t, "IES", m.From.Name)
			assert.Equal(t, "noreply@localhost", m.From.Address)
			require.Len(t, m.Personalizations, 1)
			for _, p := range m.Personalizations {
				assert.NotEmpty(t, p.To, "every personalization needs a recipient")
				assert.Equal(t, "[IES] New Evaluation Form: Midterm", p.Subject)
			}
			p := m.Personalizations[0]
			assert.Equal(t, tt.wantTo, addresses(p.To))
			assert.Equal(t, tt.wantCc, addresses(p.CC))
			assert.Equal(t, tt.wantBcc, addresses(p.BCC))
		})
	}
}
