package llm

// Prompt names double as the keys extraction results are stored under.
const (
	PromptSummary                 = "summary"
	PromptBackground              = "background"
	PromptCategorizedRequirements = "categorized_requirements"
)

// ExtractionPrompt is one fixed analytical question asked of every document.
type ExtractionPrompt struct {
	Name        string
	Instruction string
}

// SectionSpec is one section of the generated RFP.
type SectionSpec struct {
	Title       string
	Instruction string
}

const extractionSystemPrompt = "You are an expert analyst of Requests for Proposal (RFPs) issued by institutional investors, endowments and pension funds. " +
	"You read the full text of one RFP and answer with a single valid JSON object. " +
	"Never include explanations, markdown fences or any text outside the JSON object."

const generationSystemPrompt = "You are a professional financial proposal writer drafting a new Request for Proposal on behalf of an institutional client. " +
	"Write in a formal, precise register. Mark headings inside your answer with '# ' or '## ' at the start of a line, " +
	"write body text as plain paragraphs, and do not repeat the section title."

// ExtractionPrompts is the ordered set run against every document.
var ExtractionPrompts = []ExtractionPrompt{
	{
		Name: PromptSummary,
		Instruction: `Summarize this RFP. Respond with JSON of the form:
{"summary": "<three to five sentence summary>", "issuing_organization": "<name, or empty string>", "services_sought": "<one sentence>"}`,
	},
	{
		Name: PromptBackground,
		Instruction: `Describe the issuing organization's background and what it wants to achieve. Respond with JSON of the form:
{"background": "<one paragraph>", "objectives": ["<objective>", ...], "timeline": "<key dates, or empty string>"}`,
	},
	{
		Name: PromptCategorizedRequirements,
		Instruction: `List every question or requirement the RFP asks respondents to answer, grouped by the category it appears under.
Copy each question verbatim. Respond with JSON of the form:
{"categorized_requirements": [{"category_name": "<category>", "questions": ["<question>", ...]}, ...]}`,
	},
}

// OutputSections is the ordered template of the generated RFP.
var OutputSections = []SectionSpec{
	{
		Title:       "Executive Summary",
		Instruction: "Write a 250-word executive summary inviting qualified firms to respond to this RFP. Describe the organization's goals in general terms drawn from the source summaries.",
	},
	{
		Title:       "Background and Objectives",
		Instruction: "Describe the issuing organization's background and list the objectives this engagement must meet.",
	},
	{
		Title:       "Scope of Services",
		Instruction: "Describe the scope of services requested. Use '## ' subheadings for each service area suggested by the requirement categories.",
	},
	{
		Title:       "Requirements Questionnaire",
		Instruction: "Write the questionnaire respondents must answer. Use one '## ' subheading per requirement category and list the questions under it, drawing on the sample questions.",
	},
	{
		Title:       "Evaluation Criteria",
		Instruction: "Describe how proposals will be evaluated, including the relative weight of each criterion.",
	},
	{
		Title:       "Submission Instructions",
		Instruction: "Explain the submission format, deadlines, contact point and the conditions that apply to all respondents.",
	},
}
