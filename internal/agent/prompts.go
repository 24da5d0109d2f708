package agent

import (
	"fmt"
	"strings"
)

// Role names.
const (
	ResearcherName = "researcher"
	AnalystName    = "document_analyst"
)

const researcherSystemPrompt = `You are a research assistant specialized in processing queries and extracting key information requirements. Help formulate effective search queries that capture the essential elements of the user's information needs.`

const analystSystemPrompt = `You are an expert document analyst. Your role is to analyze document chunks and provide detailed, accurate responses to queries. Focus on extracting key information and presenting it in a clear, organized manner.`

// NoInformationAnswer is returned by Analyze when there are no chunks to analyze.
const NoInformationAnswer = "No relevant information was found in the documents for this query."

func enhancePrompt(query string) string {
	return fmt.Sprintf("Please enhance this search query while maintaining its original intent:\n%s\n\n"+
		"Provide only the enhanced query without any explanation.", query)
}

// batchPrompt numbers chunk contents from 1 within the batch.
func batchPrompt(query string, contents []string) string {
	formatted := make([]string, len(contents))
	for j, c := range contents {
		formatted[j] = fmt.Sprintf("Chunk %d:\n%s", j+1, c)
	}
	return fmt.Sprintf("Analyze these document chunks in relation to the following query:\nQuery: %s\n\n"+
		"Document chunks:\n%s\n\n"+
		"Provide a concise analysis focusing on relevance to the query.", query, strings.Join(formatted, "\n\n"))
}

func synthesisPrompt(query, combined string) string {
	return fmt.Sprintf("Synthesize the following analyses into a single coherent response:\n%s\n\n"+
		"Focus on the most relevant information to the query: %s", combined, query)
}
