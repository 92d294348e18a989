package session

// Canned interviewer copy, kept verbatim from the product's conversation flow.
const (
	welcomeText = "Hello! I'm your AI interviewer today. I've analyzed your resume and prepared some personalized questions. Let's get started with the first question."

	noQuestionsText = "I couldn't generate questions based on your resume. Please describe your experience and skills."

	wrapUpText = "Thank you for completing all the questions. Your responses have been recorded. Is there anything else you'd like to add?"

	genericFollowUpText = "Thank you for your response. Can you tell me more about your experience?"

	transitionPrefix = "Thank you for your response. "
)
