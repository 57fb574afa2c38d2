package page

const homeHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>Level Up Tasks</title>
  <link rel="stylesheet" href="/static/css/app.css"/>
</head>
<body>
  <header class="topbar">
    <h1>Level Up Tasks</h1>
    <div class="rank-box">
      <span id="rank-name">…</span>
      <span id="points-total"></span>
      <div class="progress"><div id="rank-progress" class="progress-fill"></div></div>
    </div>
    <button id="logout-btn" class="ghost">Log out</button>
  </header>

  <main>
    <section class="add-task">
      <input id="task-title" placeholder="What needs doing?" maxlength="200"/>
      <input id="task-description" placeholder="Details (optional)"/>
      <select id="task-category"></select>
      <button id="add-btn">Add</button>
    </section>

    <section id="task-list" class="task-list"></section>

    <section class="challenges">
      <h2>Challenges</h2>
      <div id="challenge-list"></div>
    </section>

    <section class="settings">
      <h2>Daily summary</h2>
      <label for="sender-email">Sender address</label>
      <input id="sender-email" placeholder="noreply@example.com"/>
      <button id="sender-save">Save</button>
    </section>
  </main>

  <div id="toast" class="toast hidden"></div>
  <script src="/static/js/app.js"></script>
</body>
</html>
`

const loginHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>Sign in | Level Up Tasks</title>
  <link rel="stylesheet" href="/static/css/app.css"/>
</head>
<body class="login-body">
  <main class="login-card">
    <h1>Level Up Tasks</h1>
    <p class="tagline">Complete tasks. Earn points. Climb the ranks.</p>

    <form id="login-form">
      <input id="email" type="email" placeholder="Email" autocomplete="email" required/>
      <input id="password" type="password" placeholder="Password" autocomplete="current-password" required minlength="8"/>
      <button type="submit" id="signin-btn">Sign in</button>
      <button type="button" id="signup-btn" class="ghost">Create account</button>
    </form>

    <div class="divider">or</div>
    <a class="oauth-btn" href="/auth/start">Continue with your provider</a>

    <p id="login-error" class="error hidden"></p>
  </main>
  <script src="/static/js/login.js"></script>
</body>
</html>
`

const notFoundHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <title>Not found | Level Up Tasks</title>
  <link rel="stylesheet" href="/static/css/app.css"/>
</head>
<body class="login-body">
  <main class="login-card">
    <h1>404</h1>
    <p>That page does not exist.</p>
    <a href="/">Back to your tasks</a>
  </main>
</body>
</html>
`
