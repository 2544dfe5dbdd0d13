package api

// Request/response DTOs for the SciQ tutor backend. Responses are validated
// once here at the boundary and handed onward as typed structs only.

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	DisplayName  string `json:"display_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type retrieveRequest struct {
	QuestionText string `json:"question_text"`
	Subject      string `json:"subject,omitempty"`
}

// Context is the retrieved study context for a question.
type Context struct {
	AnswerContext   string  `json:"answer_context"`
	SourceTopic     string  `json:"source_topic"`
	ConfidenceScore float64 `json:"confidence_score"`
}

type quizRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty,omitempty"`
}

// QuizQuestion is a single generated quiz item.
type QuizQuestion struct {
	QuestionID string `json:"question_id"`
	Topic      string `json:"topic"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

type quizResponse struct {
	Quiz []QuizQuestion `json:"quiz"`
}

// QuizResult is one answered question reported back for analysis.
type QuizResult struct {
	QuestionID string `json:"question_id"`
	Topic      string `json:"topic"`
	IsCorrect  bool   `json:"is_correct"`
}

type analysisRequest struct {
	Results []QuizResult `json:"results"`
}

type analysisResponse struct {
	Feedback string `json:"feedback"`
}
