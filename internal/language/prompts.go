package language

// Prompts holds every caller-facing message for one language.
type Prompts struct {
	Greeting  string // spoken before the record beep
	Continue  string // binary yes/no continuation ask
	ReRecord  string // spoken before a follow-up recording
	Goodbye   string // spoken before hangup
	Apology   string // spoken when the pipeline fails
}

var prompts = map[Language]Prompts{
	Hindi: {
		Greeting: "नमस्ते, बिजली विभाग में आपका स्वागत है। कृपया अपनी समस्या बताएं।",
		Continue: "क्या आपको और मदद चाहिए? हाँ के लिए 1 दबाएं, नहीं के लिए 2 दबाएं।",
		ReRecord: "कृपया अपनी समस्या बताएं।",
		Goodbye:  "धन्यवाद। आपका दिन शुभ हो।",
		Apology:  "माफ़ कीजिए, कोई समस्या हुई। कृपया दोबारा कॉल करें।",
	},
	English: {
		Greeting: "Hello, welcome to electricity department. Please tell us your issue.",
		Continue: "Do you need more help? Press 1 for yes, 2 for no.",
		ReRecord: "Please tell us your issue.",
		Goodbye:  "Thank you. Have a good day.",
		Apology:  "Sorry, there was an issue. Please call again.",
	},
	Telugu: {
		Greeting: "నమస్కారం, విద్యుత్ విభాగానికి స్వాగతం. దయచేసి మీ సమస్యను చెప్పండి.",
		Continue: "మీకు మరింత సహాయం కావాలా? అవును కోసం 1, కాదు కోసం 2 నొక్కండి.",
		ReRecord: "దయచేసి మీ సమస్యను చెప్పండి.",
		Goodbye:  "ధన్యవాదాలు. మంచి రోజు కలగాలి.",
		Apology:  "క్షమించండి, సమస్య వచ్చింది. దయచేసి మళ్లీ కాల్ చేయండి.",
	},
}

// PromptsFor returns the message catalog for a language.
func PromptsFor(l Language) Prompts {
	if p, ok := prompts[l]; ok {
		return p
	}
	return prompts[Default]
}

// WelcomeLine is one spoken line of the multilingual welcome menu, with
// the voice and language it should be rendered in.
type WelcomeLine struct {
	Text     string
	Voice    string
	LangCode string
}

// WelcomeMenu returns the language-selection menu spoken on an incoming
// call, alternating English and native-script lines the way callers of
// the complaint line expect.
func WelcomeMenu() []WelcomeLine {
	return []WelcomeLine{
		{Text: "Welcome to electricity department.", Voice: English.Voice(), LangCode: English.Code()},
		{Text: "Press 1 for Hindi.", Voice: English.Voice(), LangCode: English.Code()},
		{Text: "हिंदी के लिए 1 दबाएं।", Voice: Hindi.Voice(), LangCode: Hindi.Code()},
		{Text: "Press 2 for English.", Voice: English.Voice(), LangCode: English.Code()},
		{Text: "अंग्रेजी के लिए 2 दबाएं।", Voice: Hindi.Voice(), LangCode: Hindi.Code()},
		{Text: "Press 3 for Telugu.", Voice: English.Voice(), LangCode: English.Code()},
		{Text: "తెలుగు కోసం 3 నొక్కండి.", Voice: Telugu.Voice(), LangCode: Telugu.Code()},
	}
}

// System prompts constrain reply length and numeral formatting per
// language, and make the model repeat the caller's stated area.
var systemPrompts = map[Language]string{
	Hindi: `आप हैदराबाद में बिजली विभाग की कस्टमर सर्विस हैं।
संक्षिप्त जवाब दें (400 अक्षर अधिकतम).
संख्याओं को हिंदी शब्दों में लिखें (दो, तीन).
यूजर ने जो इलाका बताया उसे अपने जवाब में ज़रूर दोहराएं।`,
	English: `You are customer service for the electricity department in Hyderabad.
Answer briefly (400 characters maximum).
Write numbers as English words (two, three).
Always repeat the area the caller mentioned in your answer.`,
	Telugu: `మీరు హైదరాబాద్‌లో విద్యుత్ విభాగం కస్టమర్ సర్వీస్.
సంక్షిప్తంగా సమాధానం ఇవ్వండి (400 అక్షరాలు గరిష్టం).
సంఖ్యలను తెలుగు పదాలలో రాయండి (రెండు, మూడు).
యూజర్ చెప్పిన ప్రాంతం పేరు మీ సమాధానంలో తప్పకుండా చెప్పండి.`,
}

// SystemPrompt returns the language model system prompt for a language.
func SystemPrompt(l Language) string {
	if p, ok := systemPrompts[l]; ok {
		return p
	}
	return systemPrompts[Default]
}
