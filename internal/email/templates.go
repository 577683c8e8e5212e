package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const OTPSubject = "Your UT Vibe Verification Code 🎓"

var otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;background-color:#f5f5f5;">
  <table role="presentation" style="width:100%;border-collapse:collapse;background-color:#f5f5f5;padding:20px;">
    <tr><td align="center">
      <table role="presentation" style="max-width:600px;width:100%;background-color:#ffffff;border-radius:16px;overflow:hidden;">
        <tr><td style="background:linear-gradient(135deg,#3B82F6 0%,#2563EB 100%);padding:40px 30px;text-align:center;">
          <h1 style="margin:0;color:#ffffff;font-size:28px;font-weight:700;">UT Vibe 🎉</h1>
          <p style="margin:8px 0 0 0;color:rgba(255,255,255,0.9);font-size:16px;">Campus moments, real-time</p>
        </td></tr>
        <tr><td style="padding:40px 30px;">
          <h2 style="margin:0 0 16px 0;color:#1f2937;font-size:24px;">Verify your email</h2>
          <p style="margin:0 0 32px 0;color:#6b7280;font-size:16px;line-height:1.6;">Enter the code below to complete your signup:</p>
          <div style="background:#F3F4F6;border-radius:12px;padding:24px;text-align:center;">
            <p style="margin:0 0 12px 0;color:#6b7280;font-size:14px;text-transform:uppercase;letter-spacing:1px;">Your Verification Code</p>
            <span style="display:inline-block;background:#ffffff;border-radius:8px;padding:16px 32px;color:#2563EB;font-size:36px;font-weight:700;letter-spacing:8px;font-family:'Courier New',monospace;">{{.Code}}</span>
          </div>
          <p style="margin:24px 0 0 0;color:#9ca3af;font-size:14px;">This code expires in <strong>{{.Minutes}} minutes</strong>. Don't share it with anyone.</p>
        </td></tr>
        <tr><td style="padding:24px 30px;background-color:#f9fafb;border-top:1px solid #e5e7eb;text-align:center;">
          <p style="margin:0 0 8px 0;color:#6b7280;font-size:14px;">Didn't request this code? You can safely ignore this email.</p>
          <p style="margin:0;color:#9ca3af;font-size:12px;">&copy; {{.Year}} UT Vibe. All rights reserved.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

// OTPMessage renders the verification mail for code.
func OTPMessage(to, code string, ttl time.Duration, now time.Time) (Message, error) {
	minutes := int(ttl / time.Minute)
	var buf bytes.Buffer
	err := otpHTML.Execute(&buf, struct {
		Code    string
		Minutes int
		Year    int
	}{code, minutes, now.Year()})
	if err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}

	return Message{
		To:      to,
		Subject: OTPSubject,
		HTML:    buf.String(),
		Text: fmt.Sprintf("Your UT Vibe verification code is %s. It expires in %d minutes. "+
			"Didn't request this code? You can safely ignore this email.", code, minutes),
	}, nil
}
