package classifier

const CrisisResponse = "It sounds like you may be going through something really difficult. " +
	"You don't have to face it alone. If you are in immediate danger, please call your local emergency number. " +
	"In the US you can call or text 988 to reach the Suicide & Crisis Lifeline, available 24/7. " +
	"A library staff member can also help you find support resources in person."

const OffTopicResponse = "I'm the library's assistant, so I can only help with library questions: " +
	"finding books, research help, accounts, hours, and services. " +
	"If you need something else, you can ask to speak with a librarian."

var crisisPatterns = []string{
	`\b(kill|hurt|harm)\s+(my\s*self|myself)\b`,
	`\bsuicid(e|al)\b`,
	`\bend\s+(my|it)\s+(life|all)\b`,
	`\bwant\s+to\s+die\b`,
	`\bself[\s-]?harm\b`,
	`\bno\s+reason\s+to\s+live\b`,
}

var offTopicPatterns = []string{
	`\bf+u+c+k+`,
	`\bsh[i1]t+\b`,
	`\bb[i1]tch`,
	`\basshole\b`,
	`\b(write|do)\s+my\s+(homework|essay|assignment)\b`,
	`\b(bitcoin|crypto)\s+(price|investment|tips)\b`,
	`\b(sports\s+betting|casino\s+tips)\b`,
}

// Default returns the crisis check followed by the off-topic and profanity check.
func Default() Chain {
	crisis, err := NewPatternClassifier(VerdictCrisis, CrisisResponse, crisisPatterns)
	if err != nil {
		panic(err)
	}
	offTopic, err := NewPatternClassifier(VerdictOffTopic, OffTopicResponse, offTopicPatterns)
	if err != nil {
		panic(err)
	}
	return Chain{crisis, offTopic}
}
