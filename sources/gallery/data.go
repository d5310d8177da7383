package gallery

import "github.com/flosch/pongo2/v6"

type definition struct {
	Template
	data pongo2.Context
}

var catalog = []definition{
	{
		Template: Template{
			ID:          "invoice",
			Name:        "Modern Invoice",
			Description: "Clean billing statement with professional slate accents",
		},
		data: pongo2.Context{
			"company": map[string]any{
				"initial": "L",
				"name":    "Luminal Design Studio",
				"address": []string{"123 Innovation Drive", "San Francisco, CA 94103"},
				"email":   "contact@luminal.io",
			},
			"client": map[string]any{
				"name":    "CloudScale Systems Inc.",
				"address": []string{"Attn: Finance Department", "456 Enterprise Way, Suite 200", "Austin, TX 78701"},
			},
			"invoice": map[string]any{
				"number":   "INV-2025-0042",
				"issued":   "May 12, 2025",
				"due":      "June 12, 2025",
				"subtotal": "$9,300.00",
				"vat_rate": "10%",
				"vat":      "$930.00",
				"total":    "$10,230.00",
			},
			"items": []map[string]any{
				{"title": "UI/UX Strategy & Design", "detail": "Full redesign of the core dashboard and mobile experience.", "qty": "1", "rate": "$4,500.00", "amount": "$4,500.00"},
				{"title": "Frontend Engineering", "detail": "Component architecture and stylesheet implementation.", "qty": "40h", "rate": "$120.00", "amount": "$4,800.00"},
			},
			"bank": []map[string]any{
				{"label": "Bank Name", "value": "Global Trust Bank"},
				{"label": "Account Number", "value": "8829 1102 3349"},
				{"label": "SWIFT/BIC", "value": "GTBUSS33"},
				{"label": "Reference", "value": "INV-2025-0042"},
			},
		},
	},
	{
		Template: Template{
			ID:          "resume",
			Name:        "Executive Resume",
			Description: "Minimalist layout with a focused professional sidebar",
		},
		data: pongo2.Context{
			"person": map[string]any{
				"name":    "Alex Rivera",
				"title":   "Senior Product Designer",
				"contact": []string{"arivera@email.com", "+1 (555) 234-5678", "San Francisco, CA", "linkedin.com/in/alexr"},
				"summary": "Product designer with ten years of experience shipping design systems and data-heavy dashboards for B2B platforms.",
			},
			"skills": []string{"Figma", "React", "TypeScript", "Design Systems", "User Research", "Prototyping"},
			"experience": []map[string]any{
				{
					"role":    "Lead Product Designer",
					"company": "Northwind Analytics",
					"period":  "2021 - Present",
					"points":  []string{"Led the redesign of the reporting suite used by 40k analysts.", "Built and maintained the shared component library."},
				},
				{
					"role":    "Product Designer",
					"company": "Brightline Labs",
					"period":  "2017 - 2021",
					"points":  []string{"Designed onboarding flows that lifted activation by 18%.", "Ran weekly usability sessions with enterprise customers."},
				},
			},
			"education": []map[string]any{
				{"degree": "BFA Interaction Design", "name": "California College of the Arts", "year": "2015"},
			},
		},
	},
	{
		Template: Template{
			ID:          "report",
			Name:        "Business Memo",
			Description: "Structured formal report for corporate communication",
		},
		data: pongo2.Context{
			"memo": map[string]any{
				"organization": "Meridian Holdings",
				"to":           "Executive Leadership Team",
				"from":         "Office of Strategy",
				"date":         "May 20, 2025",
				"subject":      "Q2 Operational Review",
				"footer":       "Confidential. For internal distribution only.",
			},
			"sections": []map[string]any{
				{
					"heading":    "Summary",
					"paragraphs": []string{"Operating margin improved for the third consecutive quarter, driven by lower fulfillment costs and steady subscription growth."},
				},
				{
					"heading":    "Key Findings",
					"paragraphs": []string{"Regional distribution consolidation reduced average delivery time by 1.4 days.", "Support ticket volume fell 12% after the self-service portal launch."},
				},
				{
					"heading":    "Recommendations",
					"paragraphs": []string{"Extend the consolidation program to the northeast region and review vendor contracts before renewal in Q4."},
				},
			},
			"metrics": []map[string]any{
				{"label": "Q3 2024", "value": 70},
				{"label": "Q4 2024", "value": 90},
				{"label": "Q1 2025", "value": 110},
				{"label": "Q2 2025", "value": 135},
			},
		},
	},
}
