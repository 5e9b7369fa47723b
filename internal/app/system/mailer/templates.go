// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"html/template"
	"strings"
)

// DefaultBlogExcerpt is used when a post has no excerpt.
const DefaultBlogExcerpt = "Check out this new blog post!"

// BlogNotificationEmailData contains the data for a new-post notification
// sent to one subscriber.
type BlogNotificationEmailData struct {
	SubscriberName  string
	CreatorName     string
	CreatorPhotoURL string // optional
	BlogTitle       string
	BlogExcerpt     string
	BlogURL         string
	UnsubscribeURL  string
}

// BlogNotificationSubject is the subject line of a new-post notification.
func BlogNotificationSubject(creatorName, blogTitle string) string {
	return "New blog post from " + creatorName + ": " + blogTitle
}

// BlogNotificationEmail generates both plain text and HTML versions of a
// new-post notification.
func BlogNotificationEmail(data BlogNotificationEmailData) (textBody, htmlBody string) {
	if strings.TrimSpace(data.BlogExcerpt) == "" {
		data.BlogExcerpt = DefaultBlogExcerpt
	}
	greeting := firstName(data.SubscriberName)

	textBody = "Hi " + greeting + ",\n\n" +
		data.CreatorName + " published a new post: " + data.BlogTitle + "\n\n" +
		data.BlogExcerpt + "\n\n" +
		"Read the full post:\n" + data.BlogURL + "\n\n" +
		"You're receiving this email because you subscribed to " + data.CreatorName + "'s blog.\n" +
		"Unsubscribe: " + data.UnsubscribeURL

	var buf bytes.Buffer
	if err := blogNotificationHTMLTmpl.Execute(&buf, struct {
		BlogNotificationEmailData
		Greeting string
	}{data, greeting}); err != nil {
		// The plain text part is still deliverable on its own.
		return textBody, ""
	}
	return textBody, buf.String()
}

// WelcomeEmailData contains the data for the email sent to a reader on
// their first sign-in.
type WelcomeEmailData struct {
	Name     string
	SiteName string
	SiteURL  string
}

// WelcomeSubject is the subject line of a welcome email.
func WelcomeSubject(siteName, name string) string {
	return "Welcome to " + siteName + ", " + firstName(name) + "!"
}

// WelcomeEmail generates both plain text and HTML versions of a welcome
// email.
func WelcomeEmail(data WelcomeEmailData) (textBody, htmlBody string) {
	greeting := firstName(data.Name)

	textBody = "Welcome, " + greeting + "!\n\n" +
		"Thank you for signing in to " + data.SiteName + ". I'm glad to have you here.\n\n" +
		"You can now:\n" +
		"- Subscribe to posts and get an email when something new is published\n" +
		"- Join a creator's membership tier\n\n" +
		"Visit the blog:\n" + data.SiteURL + "\n\n" +
		"If you have any questions, just reply to this email."

	var buf bytes.Buffer
	if err := welcomeHTMLTmpl.Execute(&buf, struct {
		WelcomeEmailData
		Greeting string
	}{data, greeting}); err != nil {
		return textBody, ""
	}
	return textBody, buf.String()
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return "there"
}

var blogNotificationHTMLTmpl = template.Must(template.New("blog_notification").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>New blog post from {{.CreatorName}}: {{.BlogTitle}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 560px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 16px 32px; border-bottom: 1px solid #e4e4e7;">
              {{if .CreatorPhotoURL}}<img src="{{.CreatorPhotoURL}}" alt="{{.CreatorName}}" width="48" height="48" style="border-radius: 24px; vertical-align: middle;">{{end}}
              <span style="font-size: 16px; font-weight: 600; color: #18181b; vertical-align: middle;">{{.CreatorName}}</span>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              <p style="margin: 0 0 16px 0; font-size: 15px; color: #52525b;">Hi {{.Greeting}},</p>
              <h2 style="margin: 0 0 16px 0; font-size: 22px; font-weight: 600; color: #18181b;">{{.BlogTitle}}</h2>
              <p style="margin: 0 0 24px 0; font-size: 15px; line-height: 1.6; color: #52525b;">{{.BlogExcerpt}}</p>
              <a href="{{.BlogURL}}" style="display: inline-block; padding: 12px 24px; background-color: #18181b; color: #ffffff; text-decoration: none; border-radius: 6px; font-size: 15px;">Read Full Post</a>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; border-top: 1px solid #e4e4e7; font-size: 13px; color: #71717a;">
              You're receiving this email because you subscribed to {{.CreatorName}}'s blog.<br>
              <a href="{{.UnsubscribeURL}}" style="color: #71717a;">Unsubscribe</a>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

var welcomeHTMLTmpl = template.Must(template.New("welcome").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Welcome to {{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f4f4f5;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f4f4f5;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 560px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px;">
              <h2 style="margin: 0 0 16px 0; font-size: 22px; font-weight: 600; color: #18181b;">Welcome, {{.Greeting}}!</h2>
              <p style="margin: 0 0 16px 0; font-size: 15px; line-height: 1.6; color: #52525b;">Thank you for signing in to {{.SiteName}}. I'm glad to have you here.</p>
              <ul style="margin: 0 0 24px 0; padding-left: 20px; font-size: 15px; line-height: 1.6; color: #52525b;">
                <li>Subscribe to posts and get an email when something new is published</li>
                <li>Join a creator's membership tier</li>
              </ul>
              <a href="{{.SiteURL}}" style="display: inline-block; padding: 12px 24px; background-color: #18181b; color: #ffffff; text-decoration: none; border-radius: 6px; font-size: 15px;">Visit the Blog</a>
            </td>
          </tr>
          <tr>
            <td style="padding: 24px 32px; border-top: 1px solid #e4e4e7; font-size: 13px; color: #71717a;">
              If you have any questions, just reply to this email.
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))
