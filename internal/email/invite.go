package email

import (
	"fmt"
	"html/template"
	"strings"
)

type TeamInviteDetails struct {
	TeamName    string
	LeagueName  string
	CaptainName string
	// SignupURL is where the recipient accepts the invite. Optional.
	SignupURL string
}

var teamInviteHTML = template.Must(template.New("team_invite").Parse(`<p>Hi there,</p>
<p><strong>{{.CaptainName}}</strong> has invited you to join <strong>{{.TeamName}}</strong> in the <strong>{{.LeagueName}}</strong> league.</p>
{{if .SignupURL}}<p><a href="{{.SignupURL}}">Accept your invite</a></p>
{{end}}<p>See you on the court!</p>
`))

// BuildTeamInvite renders the invite email for recipient.
func BuildTeamInvite(recipient string, details TeamInviteDetails) (Message, error) {
	details.TeamName = strings.TrimSpace(details.TeamName)
	details.LeagueName = strings.TrimSpace(details.LeagueName)
	details.CaptainName = strings.TrimSpace(details.CaptainName)
	details.SignupURL = strings.TrimSpace(details.SignupURL)

	lines := []string{
		"Hi there,",
		"",
		fmt.Sprintf("%s has invited you to join %s in the %s league.", details.CaptainName, details.TeamName, details.LeagueName),
	}
	if details.SignupURL != "" {
		lines = append(lines, "", fmt.Sprintf("Accept your invite: %s", details.SignupURL))
	}
	lines = append(lines, "", "See you on the court!")

	var html strings.Builder
	if err := teamInviteHTML.Execute(&html, details); err != nil {
		return Message{}, fmt.Errorf("render invite email: %w", err)
	}

	return Message{
		To:      recipient,
		Subject: fmt.Sprintf("You're invited to join %s", details.TeamName),
		Text:    strings.Join(lines, "\n"),
		HTML:    html.String(),
	}, nil
}
