package evaluation

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
)

const notificationDateLayout = "January 2, 2006"

// Notifier announces new evaluation forms.
type Notifier interface {
	SendNewFormNotification(ctx context.Context, form Form) error
}

// AddressBook lists the recipients of the new form announcements.
type AddressBook interface {
	ActiveStudentAddresses(ctx context.Context) ([]mail.Address, error)
}

// MailNotifier emails new form announcements to all active students, in Bcc.
type MailNotifier struct {
	mailSvc core.EmailService
	book    AddressBook
}

func NewMailNotifier(mailSvc core.EmailService, book AddressBook) *MailNotifier {
	return &MailNotifier{mailSvc: mailSvc, book: book}
}

func (n *MailNotifier) SendNewFormNotification(ctx context.Context, form Form) error {
	addrs, err := n.book.ActiveStudentAddresses(ctx)
	if err != nil {
		return errors.Wrap(err, "getting student addresses")
	}
	if len(addrs) == 0 {
		return nil
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		Bcc:          addrs,
		Subject:      "New Evaluation Form: " + form.Title,
		TemplateName: "new_evaluation_form",
		TemplateData: map[string]string{
			"Title":       form.Title,
			"Description": form.Description,
			"StartDate":   form.Period.StartDate.Format(notificationDateLayout),
			"EndDate":     form.Period.EndDate.Format(notificationDateLayout),
		},
	})
	return nil
}

// notifyNewForm sends the announcement without blocking the caller. Failures are only logged.
func (svc *Service) notifyNewForm(form Form) {
	svc.goFunc(func() {
		ctx, cancel := context.WithTimeout(context.Background(), svc.notificationTimeout)
		defer cancel()

		start := time.Now()
		if err := svc.notifier.SendNewFormNotification(ctx, form); err != nil {
			svc.logger.Error("evaluation.notifyNewForm: "+err.Error(), err, map[string]interface{}{"evaluationFormId": form.ID})
			return
		}
		svc.logger.Debug("evaluation.notifyNewForm: done in " + time.Since(start).String())
	})
}
