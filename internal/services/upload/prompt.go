package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Длина хеша заголовка в байтах, добавляемого к имени файла.
const titleHashBytes = 4

const promptIT = `Agisci come un assistente intelligente.
Analizza il seguente messaggio vocale e restituisci:

1. 🔹 Punto principale: Di cosa parla?
2. ✅ Azioni richieste: Se ci sono istruzioni, elencale.
3. 🎭 Tono: Urgente, calmo, poetico, ecc.
4. 🧠 Riassunto completo: Max 5 frasi semplici.

Testo trascritto:
"""%s"""`

const promptEN = `Act as an intelligent assistant.
Analyze the following voice note and return:

1. 🔹 Main point: What is it about?
2. ✅ Required actions: Any instructions?
3. 🎭 Tone: Urgent, calm, poetic, etc.
4. 🧠 Full summary: Max 5 simple sentences.

Transcribed text:
"""%s"""`

// BuildPrompt возвращает запрос на анализ транскрипта: итальянский шаблон для "it",
// английский для всех остальных языков.
func BuildPrompt(transcript, language string) string {
	tmpl := promptEN
	if strings.EqualFold(strings.TrimSpace(language), "it") {
		tmpl = promptIT
	}
	return fmt.Sprintf(tmpl, transcript)
}

// ArtifactName имя файла синтезированной записи для заголовка title.
//
// Пробелы заменяются на "_", буквы и цифры любых алфавитов сохраняются вместе с "_", "-" и ".".
// Остальные символы (разделители путей, управляющие, знаки препинания) отбрасываются,
// и тогда к имени добавляется короткий хеш исходного заголовка, чтобы разные заголовки
// не сходились в один файл. Одинаковые заголовки дают одинаковое имя, поэтому повторная
// загрузка перезаписывает файл.
func ArtifactName(title string) string {
	title = strings.TrimSpace(title)

	var b strings.Builder
	dropped := false
	for _, r := range title {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		default:
			dropped = true
		}
	}
	name := strings.Trim(b.String(), "._")
	if name != b.String() {
		dropped = true
	}
	if name == "" {
		name = "Untitled"
	}
	if dropped {
		sum := sha256.Sum256([]byte(title))
		name += "_" + hex.EncodeToString(sum[:titleHashBytes])
	}
	return name + ".mp3"
}
