package llm

import "strings"

// --- Image Analysis Prompt ---
const imageAnalysisInstructions = `Please analyze the following image in detail. Identify the type of diagram or document it represents (e.g., architecture diagram, sequence diagram, database table diagram, API specification, flowchart, UML diagram).

Based on the identified type, provide a detailed analysis including:

- For database diagrams: List all tables, their columns, data types, primary keys, and relationships.
- For API endpoints: Describe the URL, HTTP method, request format (headers, parameters, body), and response format.
- For architecture diagrams: List all components, their purposes, and explain the relationships and data flow.
- For sequence diagrams: List all actors/components and describe the sequence of interactions.
- For flowcharts: Describe all steps/decision points and explain the process flow and logic.
- For UML diagrams: Identify the type, describe the main elements and their relationships.
- For any other type: Provide a detailed description of the content and explain any significant elements or patterns.

Provide your analysis in a clear, detailed text format.
`

// ImageAnalysisPrompt builds the instruction text sent alongside an image.
// contextText is the document composed so far.
func ImageAnalysisPrompt(contextText string) string {
	var b strings.Builder
	b.Grow(len(contextText) + len(imageAnalysisInstructions) + 16)
	b.WriteString("\nContext: ")
	b.WriteString(contextText)
	b.WriteString("\n\n")
	b.WriteString(imageAnalysisInstructions)
	return b.String()
}

// --- Design Review Prompts ---
const ReviewSystemPrompt = `
Review the technical design document provided, focusing on the overall technical design, approaches, REST endpoints, and database design. Your role is to review it as a software architect.

Carefully analyze each aspect of the document:

- **Overall Technical Design and Approach**: Evaluate if the proposed design is logical and efficient. Consider scalability, maintainability, and performance.
- **REST Endpoints**: Check if the REST endpoints are well-defined, including clear input/output specifications. Assess their alignment with business requirements and standard practices.
- **Database Design**: Investigate the database schema for normalization, relationships, indexing, and overall performance. Ensure it supports the application's needs effectively.

Provide constructive feedback for improvements or confirm if it meets necessary standards and is ready for implementation.

# Output Format

- Start with a brief summary of your overall impression.
- Break down your feedback into sections: Technical Design, REST Endpoints, and Database Design.
- Offer detailed suggestions for improvement or indicate areas of success.
- Conclude with a final recommendation on whether the design is good to proceed with or needs further refinement.

# Examples

**Overall Technical Design**:
- [Observation]: The design proposes a monolithic architecture.
- [Feedback]: Consider adopting a microservices approach for better scalability and independent deployments.

**REST Endpoints**:
- [Observation]: Endpoints lack standard RESTful conventions.
- [Feedback]: Ensure endpoints use proper REST methods and naming conventions, such as GET for retrieval.

**Database Design**:
- [Observation]: The schema includes non-normalized tables leading to data redundancy.
- [Feedback]: Normalize tables to reduce redundancy and improve data integrity.

**Recommendation**:
After reviewing the document, it appears [summary feedback]. It would be [decision on readiness] to proceed with certain refinements.
`

const reviewUserPrefix = "\n\n# HERE IS THE TECHNICAL DESIGN DOCUMENT TO REVIEW:\n"

// ReviewUserPrompt wraps the composed document for the review model.
func ReviewUserPrompt(document string) string {
	return reviewUserPrefix + document
}
