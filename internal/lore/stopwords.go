package lore

// stopwords holds the bilingual (English/Russian) words excluded from the
// keyword phase. Membership checks run on lowercased tokens.
var stopwords = map[string]struct{}{}

func init() {
	english := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else",
		"of", "in", "on", "at", "to", "from", "by", "with", "about",
		"into", "over", "under", "is", "am", "are", "was", "were", "be",
		"been", "being", "do", "does", "did", "have", "has", "had",
		"will", "would", "can", "could", "shall", "should", "may",
		"might", "must", "i", "me", "my", "we", "us", "our", "you",
		"your", "he", "him", "his", "she", "her", "it", "its", "they",
		"them", "their", "this", "that", "these", "those", "what",
		"which", "who", "whom", "where", "when", "why", "how", "not",
		"no", "yes", "there", "here", "all", "any", "some", "tell",
		"know", "want", "like", "look", "go", "get", "see",
	}
	russian := []string{
		"и", "в", "во", "не", "что", "он", "на", "я", "с", "со", "как",
		"а", "то", "все", "она", "так", "его", "но", "да", "ты", "к",
		"у", "же", "вы", "за", "бы", "по", "ее", "мне", "было", "вот",
		"от", "меня", "еще", "нет", "о", "из", "ему", "теперь", "когда",
		"даже", "ну", "вдруг", "ли", "если", "уже", "или", "ни", "быть",
		"был", "него", "до", "вас", "нибудь", "опять", "уж", "вам",
		"ведь", "там", "потом", "себя", "ничего", "ей", "может", "они",
		"тут", "где", "есть", "надо", "ней", "для", "мы", "тебя", "их",
		"чем", "была", "сам", "чтоб", "без", "будто", "чего", "раз",
		"тоже", "себе", "под", "будет", "тогда", "кто", "этот", "того",
		"потому", "этого", "какой", "ним", "этом", "мой", "эта",
		"расскажи", "знаешь", "хочу", "про",
	}

	for _, word := range english {
		stopwords[word] = struct{}{}
	}
	for _, word := range russian {
		stopwords[word] = struct{}{}
	}
}
