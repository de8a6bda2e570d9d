package mailer

import (
	"bytes"
	"html/template"
	"time"
)

var otpTemplate = template.Must(template.New("otp").Parse(`<p>Dear {{.Name}},</p>
<p>Thank you for signing up with our admin panel. To complete your registration, please verify your email address by entering the following one-time password:</p>
<h2>{{.Code}}</h2>
<p>This OTP is valid for {{.Minutes}} minutes. If you didn't request this OTP, please ignore this email.</p>`))

// OTPSubject is the subject line of verification emails.
const OTPSubject = "OTP - Verify your account"

// RenderOTP renders the verification email body.
func RenderOTP(name, code string, ttl time.Duration) (string, error) {
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, struct {
		Name    string
		Code    string
		Minutes int
	}{name, code, int(ttl.Minutes())})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
