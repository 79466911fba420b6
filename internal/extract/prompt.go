// Package extract turns assembled document text into the structured
// enquiry parameters using an LLM, then repairs the model's answer with
// deterministic post-processing.
package extract

import (
	"fmt"
	"strings"

	"github.com/taperedplus/design-intake/internal/model"
)

const parameterQuery = `Extract the following design parameters from the documents for a TaperedPlus technical drawing request:
- Email Subject: (The subject line of the email requesting the service from TaperedPlus).
- Post Code of Project Location: (Mostly found in the title block of the drawing attached to emails. Ignore the postcode of any company office address or sender/recipient address and use the post code of the project location only, otherwise state 'Not provided').
- Drawing Reference: (TaperedPlus Reference Number e.g. TP*****_**.** - *. Look for references associated with TaperedPlus specifically. If multiple exist, prioritize the latest one mentioned in the context of the request *to* TaperedPlus).
- Drawing Title (The Project Name, usually the project location).
- Revision (Suffix of the drawing reference e.g. **.** - A. If multiple exist, use the one associated with the Drawing Reference identified above).
- Date Received: (Date the email requesting the service *from TaperedPlus* was sent by the client. In a forwarded email chain, this is the date the email was *sent to TaperedPlus*, NOT the date of the original email further down the chain).
- Hour Received: (Local time the email was sent *to TaperedPlus*. Use 24-hour format, e.g. 14:23).
- Company: (Identify the company *directly requesting* technical drawings or services *from TaperedPlus*. In a forwarded email, this is the company of the person *sending the email to TaperedPlus*, NOT the company of the original sender further down the chain. Look for the company directly communicating with TaperedPlus).
- Contact: (Identify the contact person *directly requesting* the job or drawings *from TaperedPlus*. In a forwarded email, this is the person *sending the email to TaperedPlus*, NOT the original sender further down the chain. Look for the individual directly communicating with TaperedPlus).
- Reason for Change: (%s)
- Surveyor: (Name of the surveyor if provided).
- Target U-Value: (The primary target U-Value requested for the main insulation area).
- Target Min U-Value: (A secondary or minimum target U-Value if specified, often for specific areas like upstands).
- Fall of Tapered: (The required fall or slope for the tapered insulation).
- Tapered Insulation: (The type or brand of tapered insulation product requested).
- Decking: (The type of roof decking material described).`

// buildParameterPrompt renders the full extraction prompt. forceType pins
// Reason for Change to a known classification; when empty the model is
// asked to infer it from context.
func buildParameterPrompt(allText string, forceType model.Classification) string {
	reasonText := "Either 'Amendment' or 'New Enquiry' depending on the context of the email"
	switch forceType {
	case model.Amendment, model.NewEnquiry:
		reasonText = string(forceType)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf(parameterQuery, reasonText))
	b.WriteString("\n\nDOCUMENTS:\n\n")
	b.WriteString(allText)
	return b.String()
}

func buildProjectNamePrompt(allText string) string {
	return fmt.Sprintf(`Based on the following email content and attachments, extract the project name (drawing title) which is usually the project location.
Return only the project name, nothing else.

%s`, allText)
}
