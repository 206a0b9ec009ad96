package notifications

import (
	"fmt"
	"strings"
)

type template struct {
	title   string
	message string
}

// Template keys. Most match the notification type; the renewal notice has a
// separate staff wording.
const (
	TemplateNewApplication      = "new_application"
	TemplateApplicationStatus   = "application_status"
	TemplateApplicationAssigned = "application_assigned"
	TemplateRenewalCitizen      = "id_renewal"
	TemplateRenewalStaff        = "id_renewal_staff"
	TemplateVerification        = "verification"
	TemplatePwdIDIssued         = "pwd_id_issued"
)

var templates = map[string]template{
	TemplateNewApplication: {
		title:   "New Application Submitted",
		message: "New application {{referenceNumber}} has been submitted for {{serviceName}}",
	},
	TemplateApplicationStatus: {
		title:   "Application Status Updated",
		message: "Your application {{referenceNumber}} has been {{status}}",
	},
	TemplateApplicationAssigned: {
		title:   "Application Assigned",
		message: "Application {{referenceNumber}} has been assigned to you for review",
	},
	TemplateRenewalCitizen: {
		title:   "PWD ID Renewal Required",
		message: "Your PWD ID will expire in {{daysUntilExpiry}} days. Please renew before expiry.",
	},
	TemplateRenewalStaff: {
		title:   "PWD ID Renewal Due",
		message: "{{fullName}}'s PWD ID expires in {{daysUntilExpiry}} days",
	},
	TemplateVerification: {
		title:   "Citizen Record Verification",
		message: "Your citizen record verification status is now {{status}}",
	},
	TemplatePwdIDIssued: {
		title:   "PWD ID Issued",
		message: "Your PWD ID {{pwdIdNumber}} has been issued and is valid until {{expiryDate}}",
	},
}

// Render fills the named template. ok is false for unknown keys.
func Render(key string, data map[string]interface{}) (title, message string, ok bool) {
	t, exists := templates[key]
	if !exists {
		return "", "", false
	}
	return renderTemplate(t.title, data), renderTemplate(t.message, data), true
}

func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Drop placeholders with no value.
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
