package web

import (
	"html/template"

	"voice-mascot/internal/domain"
)

type pageData struct {
	Title          string
	Caption        string
	MascotName     string
	Messages       []domain.Message
	Notices        []domain.Notice
	TurnCounter    int
	BrowserCapture bool
	PhraseLimitMs  int64
}

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

const pageHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width,initial-scale=1" />
  <title>AI Mascot</title>
  <link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>🏏</text></svg>" />
  <style>` + pageCSS + `</style>
</head>
<body>
  <h1 class="main-title">{{.Title}}</h1>

  <main class="columns">
    <aside class="sidebar">
      <figure class="mascot">
        <img src="/mascot" alt="{{.Caption}}" />
        <figcaption>{{.Caption}}</figcaption>
      </figure>

      <div class="button-container">
        {{if .BrowserCapture}}
        <button type="button" id="voice_chat_{{.TurnCounter}}" class="voice-button" data-phrase-limit="{{.PhraseLimitMs}}">🎤 Start Voice Chat</button>
        {{else}}
        <form method="post" action="/voice" class="voice-form">
          <button type="submit" id="voice_chat_{{.TurnCounter}}" class="voice-button">🎤 Start Voice Chat</button>
        </form>
        {{end}}
        <form method="post" action="/clear">
          <button type="submit" id="clear_chat" class="clear-button">🗑️ Clear Chat</button>
        </form>
      </div>

      <div id="listening" class="listening-status" hidden></div>

      <div class="status-message">
        <p>💡 Tips for better voice recognition:</p>
        <ul>
          <li>Speak clearly and at a normal pace</li>
          <li>Ensure your microphone is working</li>
          <li>Reduce background noise</li>
          <li>Wait for "Listening..." before speaking</li>
        </ul>
      </div>
    </aside>

    <section class="chat">
      {{range .Notices}}
      <div class="notice notice-{{.Level}}">{{.Text}}</div>
      {{end}}

      {{range .Messages}}
      <div class="chat-message {{if eq .Role "user"}}user-message{{else}}mascot-message{{end}}">
        <b>{{if eq .Role "user"}}You{{else}}{{$.MascotName}}{{end}}:</b> {{.Content}}
      </div>
      {{end}}

      <div class="status-message">
        <p>👆 Click the "Start Voice Chat" button to begin speaking with the mascot!</p>
        <p>🎤 Speak clearly and wait for the mascot's response.</p>
        <p>💬 The conversation will appear in the chat window.</p>
      </div>
    </section>
  </main>

  <script>` + pageJS + `</script>
</body>
</html>
`

const pageCSS = `
body { font-family: system-ui, -apple-system, "Segoe UI", sans-serif; margin: 0 2rem; }
.main-title { text-align: center; font-size: 3rem; color: #1f77b4; margin-bottom: 2rem; }
.columns { display: grid; grid-template-columns: 1fr 3fr; gap: 2rem; }
.mascot { margin: 0; text-align: center; }
.mascot img { width: 100%; border-radius: 0.5rem; }
.mascot figcaption { color: #666; font-size: 0.9rem; margin-top: 0.5rem; }
.button-container { display: flex; flex-direction: column; gap: 10px; margin-top: 10px; }
.button-container form { margin: 0; }
button { width: 100%; margin-top: 10px; background-color: #4CAF50; color: white; border: none; padding: 10px 20px; border-radius: 5px; cursor: pointer; }
button:hover { background-color: #45a049; }
button:disabled { opacity: 0.6; cursor: wait; }
.clear-button { background-color: #f44336; }
.clear-button:hover { background-color: #da190b; }
.chat-message { padding: 1.5rem; border-radius: 0.5rem; margin-bottom: 1rem; display: flex; flex-direction: column; }
.user-message { background-color: #e3f2fd; }
.mascot-message { background-color: #f5f5f5; }
.status-message { color: #666; font-style: italic; }
.listening-status { color: #4CAF50; font-weight: bold; text-align: center; margin: 10px 0; }
.notice { padding: 0.75rem 1rem; border-radius: 0.5rem; margin-bottom: 1rem; }
.notice-status { background-color: #e8f5e9; color: #2e7d32; }
.notice-warning { background-color: #fff8e1; color: #8d6e00; }
.notice-error { background-color: #ffebee; color: #c62828; }
`

const pageJS = `
(function () {
  var status = document.getElementById("listening");
  function show(text) { status.textContent = text; status.hidden = false; }

  var form = document.querySelector(".voice-form");
  if (form) {
    form.addEventListener("submit", function () {
      form.querySelector("button").disabled = true;
      show("Adjusting for ambient noise... Please wait.");
      setTimeout(function () { show("Listening... Speak now!"); }, 2000);
    });
    return;
  }

  var button = document.querySelector(".voice-button");
  if (!button || !navigator.mediaDevices || !window.MediaRecorder) { return; }

  var limit = parseInt(button.dataset.phraseLimit, 10) || 10000;
  var recorder = null;

  button.addEventListener("click", function () {
    if (recorder) { recorder.stop(); return; }

    navigator.mediaDevices.getUserMedia({ audio: true }).then(function (stream) {
      var chunks = [];
      recorder = new MediaRecorder(stream);
      recorder.ondataavailable = function (e) { if (e.data.size > 0) { chunks.push(e.data); } };
      recorder.onstop = function () {
        stream.getTracks().forEach(function (t) { t.stop(); });
        button.disabled = true;
        show("Thinking...");
        var body = new FormData();
        body.append("audio", new Blob(chunks, { type: recorder.mimeType }), "utterance.webm");
        fetch("/api/turn", { method: "POST", body: body }).finally(function () { window.location.reload(); });
      };
      recorder.start();
      button.textContent = "⏹️ Stop";
      show("Listening... Speak now!");
      setTimeout(function () { if (recorder && recorder.state === "recording") { recorder.stop(); } }, limit);
    }).catch(function (err) {
      show("Microphone unavailable: " + err);
    });
  });
})();
`
