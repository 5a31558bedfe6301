package mailer

import (
	"fmt"

	"github.com/coverledger/internal/model"
)

// The notice builders implement the identity.Notifier and
// identity.AccountNotifier contracts.

// SendVerification emails the account activation link to a new user.
func (m *Mailer) SendVerification(userEmail, verifyURL string) error {
	body := fmt.Sprintf(
		`<html><body>
<h3>Welcome to CoverLedger</h3>
<p>Click the link below to activate your account:</p>
<p><a href="%s">Activate account</a></p>
<p>If you did not register, ignore this message.</p>
</body></html>`, verifyURL)

	return m.Send(Message{
		To:      []string{userEmail},
		Subject: "Activate your CoverLedger account",
		Body:    body,
		IsHTML:  true,
	})
}

// SendPasswordReset emails the password recovery link.
func (m *Mailer) SendPasswordReset(userEmail, resetURL string) error {
	body := fmt.Sprintf(
		`<html><body>
<h3>Password reset</h3>
<p>We received a request to change your password.</p>
<p><a href="%s">Choose a new password</a></p>
<p>If you did not request this, ignore this message.</p>
</body></html>`, resetURL)

	return m.Send(Message{
		To:      []string{userEmail},
		Subject: "CoverLedger password reset",
		Body:    body,
		IsHTML:  true,
	})
}

// SendRoleRequest notifies the administrative contact that a user wants a
// new role, with one-click approve and reject links carrying the request
// token.
func (m *Mailer) SendRoleRequest(userEmail string, desired model.Role, approveURL, rejectURL string) error {
	cfg := m.config()
	body := fmt.Sprintf(
		`<html><body>
<h3>Role change request</h3>
<p>User <b>%s</b> requests the role <b>%s</b>.</p>
<p>
<a href="%s">APPROVE</a> &nbsp; <a href="%s">REJECT</a>
</p>
</body></html>`, userEmail, desired, approveURL, rejectURL)

	return m.Send(Message{
		To:      []string{cfg.AdminEmail},
		Subject: fmt.Sprintf("Role change request: %s", userEmail),
		Body:    body,
		IsHTML:  true,
	})
}

// SendRoleResult tells the user how their role request was resolved.
func (m *Mailer) SendRoleResult(userEmail string, approved bool, role model.Role) error {
	var body string
	if approved {
		body = fmt.Sprintf(
			`<html><body>
<h3>Role request approved</h3>
<p>Your role has been updated to <b>%s</b>.</p>
<p>Sign out and back in to see the new options.</p>
</body></html>`, role)
	} else {
		body = `<html><body>
<h3>Role request denied</h3>
<p>Your role change request was not approved.</p>
</body></html>`
	}

	return m.Send(Message{
		To:      []string{userEmail},
		Subject: "Your role change request",
		Body:    body,
		IsHTML:  true,
	})
}

// SendTicketReply forwards an administrative answer to the ticket owner.
func (m *Mailer) SendTicketReply(userEmail, subject, answer string) error {
	body := fmt.Sprintf(
		`<html><body>
<h3>Support reply: %s</h3>
<p>%s</p>
</body></html>`, subject, answer)

	return m.Send(Message{
		To:      []string{userEmail},
		Subject: fmt.Sprintf("Re: %s", subject),
		Body:    body,
		IsHTML:  true,
	})
}
