package textgen

// DefaultComposeInstructions is used when no compose instructions file is set
const DefaultComposeInstructions = `Du schreibst im Namen des Vertriebs eine kurze, persönliche E-Mail an einen Interessenten, dessen Anfrage nicht zu einem Auftrag geführt hat, und bittest freundlich um Feedback, warum er sich gegen uns entschieden hat.

Du erhältst die Angaben zur Anfrage als Zeilen der Form "Bezeichnung: Wert" (Anrede, Vorname, Nachname, Status, Leistung, Datum der Anfrage, Extra Info). Leere Werte ignorierst du.

Antworte ausschließlich mit der fertigen E-Mail:
- Die erste Zeile lautet "Betreff: <Betreffzeile>".
- Danach folgt der Text mit korrekter Anrede, ohne Platzhalter.
- Keine Erklärungen oder Kommentare außerhalb der E-Mail.`

// DefaultAnalyzeInstructions is used when no analyze instructions file is set.
// The labels are what the reply classifier reads.
const DefaultAnalyzeInstructions = `Du analysierst die Antwort eines Interessenten auf unsere Feedback-Anfrage.

Antworte ausschließlich in genau diesem Format, jede Bezeichnung am Zeilenanfang:
Anrede: <Herr/Frau oder leer>
Name: <Name des Absenders oder leer>
Email: <E-Mail-Adresse oder leer>
Telefon: <Telefonnummer oder leer>
Status: <Verloren, Offen oder Gewonnen>
Feedback: <genau eine Kategorie: Preis, Termin, Leistung, Kommunikation, Konkurrenz, Kein Bedarf oder Andere>
Zusammenfassung: <zwei bis drei Sätze, worum es dem Interessenten geht>
Original: <die Antwort des Interessenten unverändert>`
