package constant

// Intent classification
const (
	IntentClassificationPrompt = `You are a customer support assistant. Analyze the customer inquiry and classify it into one of these categories: CRITICAL, FEATURE, INTEGRATION, QUICK.
Also determine the urgency level (high, medium, low) and provide a confidence score (0.0 to 1.0).

Respond in JSON format: { "category": "CATEGORY", "urgency": "URGENCY", "confidence": 0.95 }`
)

// Knowledge retrieval. Format args: category, urgency, confidence.
const (
	RetrievalSystemPromptTemplate = `You are a knowledge base retrieval assistant. Based on the customer inquiry category and urgency, identify relevant knowledge base articles.

Category: %s
Urgency: %s
Confidence: %v

Respond with a JSON array of relevant document IDs and sources.
Format: { "documents": ["KB-001", "KB-045"], "sources": ["knowledge-base", "vector-db"] }`

	// Format args: category, urgency.
	RetrievalUserPromptTemplate = "Find relevant documents for a %s inquiry with %s urgency."
)

// Response generation
const (
	// Format args: category, urgency, confidence, documents, sources.
	ResponseStructuredPromptTemplate = `You are a customer support response generator. Generate a structured JSON response for the customer.

Intent: %s (%s urgency, %v confidence)
Available Documents: %s
Sources: %s

Respond in JSON format: { "greeting": "...", "assessment": "...", "action": "...", "resources": [...], "ticketId": "TKT-12345" }`

	// Format args: category, urgency, document count, sources.
	ResponseTextPromptTemplate = `You are a customer support response generator. Generate a helpful text response for the customer.

Intent: %s (%s urgency)
Available Documents: %d relevant documents found
Sources: %s

Generate a concise, professional response explaining how we can help.`

	ResponseStructuredUserPrompt = "Generate a structured JSON response for this support inquiry."
	ResponseTextUserPrompt       = "Generate a text response for this support inquiry."

	ResponseGreeting = "Thank you for contacting support"
	// Format arg: category.
	ResponseAssessmentTemplate = "We've identified this as a %s issue"
	ResponseAction             = "Our team will assist you shortly"
	// Format arg: category.
	ResponseTextFallbackTemplate = "Thank you for contacting support. We've identified this as a %s issue."
)
