package llmfilter

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// systemPrompt instructs the classifier to keep genuine product and service
// pages and drop everything else. Kept deliberately explicit: small local
// models need the remove-categories spelled out.
const systemPrompt = `You are an expert data filtering assistant. You identify genuine product and
service pages in Wikipedia pageview data for five technology companies:
Amazon, Apple, Google, Microsoft, Meta.

Keep ONLY legitimate products, services, hardware, software, and platforms:
hardware devices, operating systems, applications, cloud services and APIs,
digital platforms, gaming consoles and first-party games, subscription
services, AI models and developer tools.

Remove everything else, including:
- People: executives, founders, employees, name-shaped titles
- Legal and corporate matters: lawsuits, antitrust, settlements, court cases
- Historical and meta content: history_of, timeline_of, list_of,
  comparison_of, criticism, controversy, scandal
- Buildings and locations: campus, headquarters, office, data center
- Events: conferences, summits, expos, awards, ceremonies
- Media about the company: films, TV series, books, documentaries
- Domain names, URLs, typefaces, bare years, financial terms

Edge cases to KEEP: AWS services with technical names (EC2, S3, Lambda),
programming languages the company maintains (Go, Dart, TypeScript), open
source projects released as products (Kubernetes, TensorFlow, React), and
subsidiaries operating as brands (Instagram, WhatsApp, Twitch, LinkedIn).

When uncertain, lean toward KEEP if it could be a product. Evaluate only the
provided entries; never add new ones.

Return a single JSON object with two keys:
- "json_output": list of kept records, each with exactly the fields
  "domain" (string), "page_title" (string), "count_views" (integer)
- "csv_output": the same records as CSV with header
  domain,page_title,count_views

Return ONLY valid JSON. No markdown, no explanations.`

// buildUserPrompt serializes one batch into the instruction payload sent with
// every classifier call.
func buildUserPrompt(records []model.RawRecord) (string, error) {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "llmfilter: marshal batch records")
	}

	return fmt.Sprintf(`Analyze these %d Wikipedia pageview records.

BUSINESS CONTEXT:
We are analyzing popularity of 5 tech companies: Amazon, Apple, Meta/Facebook, Google, Microsoft.

TASK:
Keep ALL genuine product and service pages.
Remove ONLY: people, events, buildings, legal cases, historical retrospectives, controversies.

RECORDS TO FILTER:
%s

REQUIRED OUTPUT FORMAT:
{
  "json_output": [
    {"domain": "en.wikipedia.org", "page_title": "iPhone", "count_views": 50000}
  ],
  "csv_output": "domain,page_title,count_views\nen.wikipedia.org,iPhone,50000\n"
}

IMPORTANT: Return ONLY valid JSON. No markdown, no explanations, just the JSON object.`,
		len(records), string(payload)), nil
}
