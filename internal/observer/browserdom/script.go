package browserdom

// The scripts below are the page-side half of the DOM source. Every element
// the observer tracks gets a data-kobo-id attribute; all communication back
// to Go goes through the three exposed bindings.

// initScript installs the injection guard, the id allocator and the mutation
// observer. Running it twice is safe: a previous injection is detected via a
// window flag and its stale UI artifacts are removed before re-installing.
const initScript = `() => {
	document.querySelectorAll('.kobo-wrapper .kobo-save-button, .kobo-toast').forEach((el) => el.remove());
	if (window.__koboInjected) {
		return false;
	}
	window.__koboInjected = true;
	window.__koboNextId = 1;

	window.__koboRecord = (el) => {
		if (!el.dataset.koboId) {
			el.dataset.koboId = 'img-' + window.__koboNextId++;
		}
		return {
			id: el.dataset.koboId,
			source: el.src || '',
			naturalWidth: el.naturalWidth || 0,
			naturalHeight: el.naturalHeight || 0,
			complete: !!el.complete,
			alt: el.alt || '',
			title: el.title || ''
		};
	};

	const report = (el) => window.koboImageAdded(JSON.stringify(window.__koboRecord(el)));
	const observer = new MutationObserver((mutations) => {
		for (const mutation of mutations) {
			for (const node of mutation.addedNodes) {
				if (node.nodeName === 'IMG') {
					report(node);
				} else if (node.querySelectorAll) {
					node.querySelectorAll('img').forEach(report);
				}
			}
		}
	});
	observer.observe(document.body, { childList: true, subtree: true });
	return true;
}`

// collectScript snapshots every image currently in the document.
const collectScript = `() => {
	return Array.from(document.querySelectorAll('img')).map((el) => window.__koboRecord(el));
}`

// watchLoadScript arms a one-time load listener on an image that has not
// finished loading yet.
const watchLoadScript = `(id) => {
	const el = document.querySelector('[data-kobo-id="' + id + '"]');
	if (!el) {
		return;
	}
	el.addEventListener('load', () => {
		window.koboImageLoaded(JSON.stringify(window.__koboRecord(el)));
	}, { once: true });
}`

// attachScript wraps the image in a neutral container and adds the hidden
// save control, wiring pointer events back to Go.
const attachScript = `(id) => {
	const img = document.querySelector('[data-kobo-id="' + id + '"]');
	if (!img || !img.parentNode) {
		return false;
	}

	let wrapper = img.parentNode;
	if (!(wrapper.classList && wrapper.classList.contains('kobo-wrapper'))) {
		wrapper = document.createElement('div');
		wrapper.className = 'kobo-wrapper';
		wrapper.style.position = 'relative';
		wrapper.style.display = 'inline-block';
		img.parentNode.insertBefore(wrapper, img);
		wrapper.appendChild(img);
	} else if (wrapper.querySelector('.kobo-save-button')) {
		return true;
	}

	const button = document.createElement('button');
	button.className = 'kobo-save-button';
	button.textContent = 'Save';
	button.style.cssText = 'position:absolute;top:8px;right:8px;display:none;z-index:2147483647;' +
		'padding:6px 12px;border:none;border-radius:16px;background:#1a1a2e;color:#fff;cursor:pointer;';
	wrapper.appendChild(button);

	wrapper.addEventListener('mouseenter', () => window.koboAffordanceEvent(id, 'pointer-enter'));
	wrapper.addEventListener('mouseleave', () => window.koboAffordanceEvent(id, 'pointer-leave'));
	button.addEventListener('click', (e) => {
		e.preventDefault();
		e.stopPropagation();
		window.koboAffordanceEvent(id, 'activate');
	});
	return true;
}`

// applyScript reflects an affordance state into the control.
const applyScript = `(arg) => {
	const img = document.querySelector('[data-kobo-id="' + arg.id + '"]');
	if (!img || !img.parentNode) {
		return;
	}
	const button = img.parentNode.querySelector('.kobo-save-button');
	if (!button) {
		return;
	}
	const labels = { idle: 'Save', hover: 'Save', saving: 'Saving...', success: 'Saved!', error: 'Error' };
	button.textContent = labels[arg.state] || 'Save';
	button.style.display = arg.state === 'idle' ? 'none' : 'inline-block';
	button.dataset.koboState = arg.state;
}`

// toastScript shows a transient notification, replacing any visible one.
const toastScript = `(arg) => {
	const existing = document.querySelector('.kobo-toast');
	if (existing) {
		existing.remove();
	}
	const toast = document.createElement('div');
	toast.className = 'kobo-toast kobo-toast-' + arg.kind;
	toast.textContent = arg.message;
	toast.style.cssText = 'position:fixed;bottom:24px;right:24px;z-index:2147483647;' +
		'padding:12px 20px;border-radius:8px;color:#fff;font-family:sans-serif;' +
		(arg.kind === 'success' ? 'background:#2e7d32;' : 'background:#c62828;');
	document.body.appendChild(toast);
	setTimeout(() => toast.remove(), 3000);
}`
